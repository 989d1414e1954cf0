package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/net-watchdog/internal/status"
)

func formatUptime(d time.Duration) string {
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
}

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": formatUptime,
	"stamp": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.UTC().Format("2006-01-02T15:04:05Z")
	},
	"orUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Network Watchdog</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.NORMAL, .OK, .connected { color: green; font-weight: bold; }
.DEGRADED, .FAILED, .disconnected { color: red; font-weight: bold; }
.UNKNOWN { color: orange; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Network Watchdog<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>State</h2>
<table>
<tr><th>Cadence</th><td id="cadence" class="{{orUnknown (printf "%s" .State.Cadence)}}">{{orUnknown (printf "%s" .State.Cadence)}}</td></tr>
<tr><th>Last check</th><td id="last-result" class="{{orUnknown (printf "%s" .LastResult)}}">{{orUnknown (printf "%s" .LastResult)}}</td></tr>
<tr><th>Consecutive failures</th><td id="failures">{{.State.ConsecutiveFailures}} / {{.Config.MaxFailures}}</td></tr>
<tr><th>Outage declared</th><td id="outage">{{if .State.OutageDeclared}}yes{{else}}no{{end}}</td></tr>
<tr><th>Relay</th><td id="relay">{{if .RelayOpen}}open (power off){{else}}closed{{end}}</td></tr>
<tr><th>Button</th><td id="button">{{if .ButtonHeld}}held{{else}}released{{end}}</td></tr>
<tr><th>Checked at</th><td id="last-check">{{stamp .State.LastCheck}}</td></tr>
<tr><th>Next check</th><td id="next-check">{{stamp .NextCheck}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>Probe</th><td>{{.Config.ProbeMethod}} {{.Config.ProbeHost}}</td></tr>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Counts</h2>
<table>
<tr><th>Checks</th><td id="checks">{{.Counts.Checks}}</td></tr>
<tr><th>Failed checks</th><td id="failed">{{.Counts.Failures}}</td></tr>
<tr><th>Outages</th><td id="outages">{{.Counts.Outages}}</td></tr>
<tr><th>Power cycles</th><td id="cycles">{{.Counts.PowerCycles}}</td></tr>
<tr><th>Manual resets</th><td id="resets">{{.Counts.ManualResets}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td id="uptime">{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{stamp .StartTime}}</td></tr>
<tr><th>Normal period</th><td>{{.Config.NormalPeriod}}</td></tr>
<tr><th>Degraded period</th><td>{{.Config.AltPeriod}}</td></tr>
<tr><th>Power cycle</th><td>{{.Config.PowerCycleDuration}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.Heartbeat 0}}disabled{{else}}{{.Config.Heartbeat}}{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function setText(id, text, cls) {
    var el = document.getElementById(id);
    el.textContent = text;
    if (cls !== undefined) { el.className = cls; }
  }

  function stamp(s) { return s ? s : "-"; }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");

    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(ev) {
      try {
        var s = JSON.parse(ev.data).status;
        setText("cadence", s.cadence, s.cadence);
        setText("last-result", s.last_result, s.last_result);
        setText("failures", s.consecutive_failures + " / " + s.config.max_consecutive_failures);
        setText("outage", s.outage_declared ? "yes" : "no");
        setText("relay", s.relay_open ? "open (power off)" : "closed");
        setText("button", s.button_held ? "held" : "released");
        setText("last-check", stamp(s.last_check));
        setText("next-check", stamp(s.next_check));
        setText("checks", s.counts.checks);
        setText("failed", s.counts.failures);
        setText("outages", s.counts.outages);
        setText("cycles", s.counts.power_cycles);
        setText("resets", s.counts.manual_resets);
        setText("uptime", s.uptime_seconds + "s");
      } catch (e) {}
    };
  }

  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
