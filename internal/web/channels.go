package web

import (
	"encoding/xml"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/adebree/doduino/internal/status"
)

const crossDomainPolicy = `<?xml version='1.0'?>` +
	`<!DOCTYPE cross-domain-policy SYSTEM 'http://www.macromedia.com/xml/dtds/cross-domain-policy.dtd'>` +
	`<cross-domain-policy>` +
	`<allow-access-from domain='*' />` +
	`</cross-domain-policy>`

// ChannelsXML is the channel listing served by /getLightChannels and
// /getSwitchChannels.
type ChannelsXML struct {
	XMLName  xml.Name     `xml:"Channels"`
	Channels []ChannelXML `xml:"Channel"`
}

// ChannelXML is one listed channel. Lights carry Value and SpeedFactor,
// switches carry State.
type ChannelXML struct {
	Nr          int  `xml:"nr,attr"`
	Value       *int `xml:"Value,omitempty"`
	SpeedFactor *int `xml:"SpeedFactor,omitempty"`
	State       *int `xml:"State,omitempty"`
}

// lightChannels lists light targets, as the legacy API reported them.
func lightChannels(snap status.Snapshot) ChannelsXML {
	out := ChannelsXML{Channels: make([]ChannelXML, len(snap.Lights))}
	for i, l := range snap.Lights {
		target, speed := l.Target, l.SpeedFactor
		out.Channels[i] = ChannelXML{Nr: i, Value: &target, SpeedFactor: &speed}
	}
	return out
}

// switchChannels lists switch targets as 0/1.
func switchChannels(snap status.Snapshot) ChannelsXML {
	out := ChannelsXML{Channels: make([]ChannelXML, len(snap.Switches))}
	for i, s := range snap.Switches {
		state := 0
		if s.Target {
			state = 1
		}
		out.Channels[i] = ChannelXML{Nr: i, State: &state}
	}
	return out
}

func writeXML(w http.ResponseWriter, v ChannelsXML) {
	w.Header().Set("Content-Type", "text/xml")
	if err := encodeXML(w, v); err != nil {
		log.Error().Err(err).Msg("encode channel listing")
	}
}

func encodeXML(w io.Writer, v ChannelsXML) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", " ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
