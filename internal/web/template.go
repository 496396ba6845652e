package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/swamp-cooler/internal/logic"
	"github.com/sweeney/swamp-cooler/internal/status"
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
	"relay": func(decided, on bool) string {
		if !decided {
			return "UNKNOWN"
		}
		return string(logic.StateOf(on))
	},
	"when": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.UTC().Format("2006-01-02T15:04:05Z")
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Swamp Cooler</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.ON { color: green; font-weight: bold; }
.OFF { color: #888; }
.UNKNOWN { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.failed { color: red; font-weight: bold; }
</style>
</head>
<body>
<h1>Swamp Cooler</h1>

<h2>Setting</h2>
<table>
{{if .Decided}}<tr><th>Mode</th><td>{{.Decision.Setting.Mode}}</td></tr>
<tr><th>Stored</th><td>{{.Decision.Setting}}</td></tr>
<tr><th>Desired</th><td>{{printf "%.1f" .Decision.Setting.DesiredTemperature}}&deg;F</td></tr>
<tr><th>Applied</th><td>{{.Decision.Label}}</td></tr>
{{if .Decision.FailClosed}}<tr><th>Failed closed</th><td class="failed">{{.Decision.Reason}}</td></tr>{{end}}
<tr><th>Decided</th><td>{{when .Decision.At}}</td></tr>
{{else}}<tr><th>Mode</th><td class="UNKNOWN">UNKNOWN</td></tr>{{end}}
</table>

<h2>Relays</h2>
<table>
<tr><th>Pump</th><td class="{{relay .Decided .Decision.Relay.Pump}}">{{relay .Decided .Decision.Relay.Pump}}</td></tr>
<tr><th>Fan</th><td class="{{relay .Decided .Decision.Relay.Fan}}">{{relay .Decided .Decision.Relay.Fan}}</td></tr>
<tr><th>High speed</th><td class="{{relay .Decided .Decision.Relay.Speed}}">{{relay .Decided .Decision.Relay.Speed}}</td></tr>
<tr><th>Ready</th><td>{{if .Baselined}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Sensors</h2>
<table>
{{with .Roof}}<tr><th>Roof</th><td>{{printf "%.1f" .Temperature}}&deg;F {{printf "%.1f" .Humidity}}% at {{when .ReceivedAt}}</td></tr>{{else}}<tr><th>Roof</th><td class="UNKNOWN">no reading</td></tr>{{end}}
{{with .Home}}<tr><th>Home</th><td>{{printf "%.1f" .Temperature}}&deg;F {{printf "%.1f" .Humidity}}% at {{when .ReceivedAt}}</td></tr>{{else}}<tr><th>Home</th><td class="UNKNOWN">no reading</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
<tr><th>Serial</th><td>{{.Config.SerialDevice}} @ {{.Config.BaudRate}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Counters</h2>
<table>
<tr><th>Frames</th><td>{{.Counters.Frames}}</td></tr>
<tr><th>Readings stored</th><td>{{.Counters.ReadingsStored}}</td></tr>
<tr><th>Decode failures</th><td>{{.Counters.DecodeFailures}}</td></tr>
<tr><th>Store errors</th><td>{{.Counters.StoreErrors}}</td></tr>
<tr><th>Transport faults</th><td>{{.Counters.TransportFaults}}</td></tr>
<tr><th>Setting writes</th><td>{{.Counters.SettingWrites}}</td></tr>
<tr><th>Cycles</th><td>{{.Counters.Cycles}}</td></tr>
<tr><th>Pump on/off</th><td>{{.Counts.PumpOn}} / {{.Counts.PumpOff}}</td></tr>
<tr><th>Fan on/off</th><td>{{.Counts.FanOn}} / {{.Counts.FanOff}}</td></tr>
<tr><th>Speed on/off</th><td>{{.Counts.SpeedOn}} / {{.Counts.SpeedOff}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Wait</th><td>{{.Config.WaitMs}}ms</td></tr>
<tr><th>Pause</th><td>{{.Config.PauseMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
<tr><th>Instance</th><td>{{.Config.InstanceID}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/readings.json?sensor=roof&amp;days=1">Roof history</a> | <a href="/readings.json?sensor=home&amp;days=1">Home history</a> | <a href="/metrics">Metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
