package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/adebree/doduino/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"state": status.StateString,
	"button": func(names []string, i int) string {
		if i < 0 || i >= len(names) {
			return ""
		}
		return names[i]
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>DoDuino</title>
<style>
body { font-family: monospace; max-width: 720px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>DoDuino{{if .Config.WSBroker}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2>Lights</h2>
<table>
<tr><th>#</th><th>Name</th><th>Value</th><th>Target</th><th>Idle</th><th>Speed</th><th>Button</th></tr>
{{range $i, $l := .Lights}}<tr><td>{{$i}}</td><td>{{$l.Name}}</td><td id="light-{{$i}}" class="{{if gt $l.Value 0}}on{{else}}off{{end}}">{{$l.Value}}</td><td>{{$l.Target}}</td><td>{{$l.Idle}}</td><td>{{$l.SpeedFactor}}</td><td>{{button $.ButtonNames $l.Owner}}</td></tr>
{{end}}</table>

<h2>Switches</h2>
<table>
<tr><th>#</th><th>Name</th><th>State</th><th>Type</th><th>Button</th></tr>
{{range $i, $s := .Switches}}<tr><td>{{$i}}</td><td>{{$s.Name}}</td><td id="switch-{{$i}}" class="{{if $s.On}}on{{else}}off{{end}}">{{state $s.On}}{{if $s.Queued}} (queued){{end}}</td><td>{{$s.Type}}{{if $s.AlwaysOn}}, always on{{end}}</td><td>{{button $.ButtonNames $s.Owner}}</td></tr>
{{end}}</table>

<h2>Buttons</h2>
<table>
<tr><th>Name</th><th>Pressed</th></tr>
{{range .Buttons}}<tr><td>{{.Name}}</td><td class="{{if .Pressed}}on{{else}}off{{end}}">{{if .Pressed}}yes{{else}}no{{end}}{{if .Fading}} (fading){{end}}</td></tr>
{{end}}</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Ticks</th><td>{{.Ticks}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}} ({{.Config.Broker}})</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
<tr><th>Instance</th><td>{{.InstanceID}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/getLightChannels">lights</a> | <a href="/getSwitchChannels">switches</a></p>
{{if .Config.WSBroker}}
<script src="https://unpkg.com/mqtt@5/dist/mqtt.min.js"></script>
<script>
(function() {
  var broker = "{{.Config.WSBroker}}";
  var prefix = "{{.Config.Prefix}}";
  var dot = document.getElementById("live-dot");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  var client = mqtt.connect(broker, { reconnectPeriod: 5000 });

  client.on("connect", function() {
    setDot("ok", "live");
    client.subscribe(prefix + "/light/+/state");
    client.subscribe(prefix + "/switch/+/state");
  });

  client.on("reconnect", function() {
    setDot("pending", "reconnecting");
  });

  client.on("offline", function() {
    setDot("err", "offline");
  });

  client.on("error", function() {
    setDot("err", "error");
  });

  client.on("message", function(t, payload) {
    var parts = t.split("/");
    if (parts.length < 3) return;
    var kind = parts[parts.length - 3];
    var el = document.getElementById(kind + "-" + parts[parts.length - 2]);
    if (!el) return;
    try {
      var msg = JSON.parse(payload.toString());
      if (kind === "light") {
        el.textContent = msg.value;
        el.className = msg.value > 0 ? "on" : "off";
      } else if (kind === "switch") {
        el.textContent = msg.state;
        el.className = msg.state === "ON" ? "on" : "off";
      }
    } catch (e) {}
  });
})();
</script>
{{end}}
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime      time.Duration
		ButtonNames []string
	}{
		Snapshot:    snap,
		Uptime:      snap.Uptime(),
		ButtonNames: make([]string, len(snap.Buttons)),
	}
	for i, b := range snap.Buttons {
		data.ButtonNames[i] = b.Name
	}
	return indexTmpl.Execute(w, data)
}
