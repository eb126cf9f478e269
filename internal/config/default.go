package config

// DefaultYAML is the configuration used when no file is given, and the
// file written by "doduino install". Buttons and relays sit on the BCM GPIO
// header, the dimmers on a PCA9685 board.
const DefaultYAML = `# doduino configuration
# Values of the form ${VAR} or ${VAR:default} are taken from the environment.

poll: 5ms

log:
  level: ${DODUINO_LOG_LEVEL:info}
  json: false
  colors: true
  trace: false
  # Mirror the log to a serial console.
  # serial_port: /dev/ttyAMA0
  # serial_baud: 115200

http:
  addr: ":80"
  ws_broker: "=broker"

mqtt:
  broker: ${DODUINO_MQTT_BROKER:tcp://localhost:1883}
  prefix: doduino
  heartbeat: 15m
  buffer_size: 100

hardware:
  chip: gpiochip0
  pull_down: true
  i2c_bus: 1
  pwm_address: 0x40
  pwm_frequency: 1000

commands:
  queue_size: 32

lights:
  - {name: light0, pin: 0}
  - {name: light1, pin: 1}
  - {name: light2, pin: 2}
  - {name: light3, pin: 3}
  - {name: light4, pin: 4}
  - {name: light5, pin: 5, idle: 60}
  - {name: light6, pin: 6}
  - {name: light7, pin: 7}
  - {name: light8, pin: 8}
  - {name: light9, pin: 9}
  - {name: light10, pin: 10}
  - {name: light11, pin: 11}

switches:
  - {name: switch0, pin: 5, type: delayed_stop, duration: 10s}
  - {name: switch1, pin: 6, type: delayed_stop, duration: 60s}
  - {name: switch2, pin: 12, type: toggle}
  - {name: switch3, pin: 13}
  - {name: switch4, pin: 16}
  # Floor LEDs: on whenever any light is on.
  - {name: switch5, pin: 19, type: toggle, always_on: true, initial_on: true}
  - {name: switch6, pin: 20, type: toggle}
  - {name: switch7, pin: 21}
  - {name: switch8, pin: 26}
  - {name: switch9, pin: 27}

buttons:
  - {name: button0, pin: 4, lights: [light5]}
  - {name: button1, pin: 17, lights: [light4]}
  - {name: button2, pin: 18, lights: [light8]}
  - {name: button3, pin: 22, lights: [light10]}
  - {name: button4, pin: 23}
  - {name: button5, pin: 24, lights: [light11]}
  - {name: button6, pin: 25}
  - {name: button7, pin: 9}
  - {name: button8, pin: 10}
  - {name: button9, pin: 11}
`
