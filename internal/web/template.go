package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/detection-dashboard/internal/status"
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
	"pct": func(v float64) string {
		return fmt.Sprintf("%.1f%%", v)
	},
	"clock": func(t time.Time) string {
		return t.Format("15:04:05.000")
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Detection Dashboard</title>
<style>
body { font-family: monospace; max-width: 720px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.big { font-size: 1.5em; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.controls button { padding: 8px 14px; margin-right: 8px; }
#history { max-height: 320px; overflow-y: auto; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Detection Dashboard<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<div class="controls">
<button id="start-btn"{{if .Summary.Enabled}} disabled{{end}}>Start Detection</button>
<button id="stop-btn"{{if not .Summary.Enabled}} disabled{{end}}>Stop Detection</button>
</div>

<h2>Statistics</h2>
<table>
<tr><th>Detection</th><td id="detecting" class="{{if .Summary.Enabled}}on{{else}}off{{end}}">{{if .Summary.Enabled}}running{{else}}stopped{{end}}</td></tr>
<tr><th>Objects Detected</th><td id="objects-count" class="big">{{.Summary.TotalObjects}}</td></tr>
<tr><th>Average Confidence</th><td id="avg-confidence" class="big">{{.Summary.AverageText}}</td></tr>
<tr><th>Detection Events</th><td id="events-count">{{.Summary.Events}}</td></tr>
<tr><th>FPS</th><td id="fps-value">{{printf "%.1f" .FPS}}</td></tr>
</table>

<h2>Recent Detections</h2>
<table id="history">
<tbody id="history-body">
{{range .Log}}<tr><td>{{clock .Timestamp}}</td><td>{{.Objects}} object(s){{if .Labels}} ({{range $i, $l := .Labels}}{{if $i}}, {{end}}{{$l}}{{end}}){{end}}</td><td>{{pct .Confidence}}</td></tr>
{{else}}<tr><td colspan="3">no detections yet</td></tr>
{{end}}</tbody>
</table>

<h2>System</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Source</th><td>{{.Config.Source}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Frame interval</th><td>{{.Config.FrameIntervalMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">metrics</a></p>

<script>
(function() {
  var refreshMs = {{.Config.RefreshMs}} || 1000;
  var dot = document.getElementById("live-dot");
  var startBtn = document.getElementById("start-btn");
  var stopBtn = document.getElementById("stop-btn");
  var pollTimer = null;

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function cell(text) {
    var td = document.createElement("td");
    td.textContent = text;
    return td;
  }

  function render(data) {
    var s = data.status;
    var det = document.getElementById("detecting");
    det.textContent = s.is_detecting ? "running" : "stopped";
    det.className = s.is_detecting ? "on" : "off";
    startBtn.disabled = s.is_detecting;
    stopBtn.disabled = !s.is_detecting;
    document.getElementById("objects-count").textContent = s.total_objects;
    document.getElementById("avg-confidence").textContent = s.avg_confidence_text;
    document.getElementById("events-count").textContent = s.events;
    document.getElementById("fps-value").textContent = s.fps.toFixed(1);

    var body = document.getElementById("history-body");
    body.innerHTML = "";
    var history = s.detection_history || [];
    if (history.length === 0) {
      var tr = document.createElement("tr");
      var td = cell("no detections yet");
      td.colSpan = 3;
      tr.appendChild(td);
      body.appendChild(tr);
    }
    history.forEach(function(d) {
      var tr = document.createElement("tr");
      var what = d.objects + " object(s)";
      if (d.labels && d.labels.length) {
        what += " (" + d.labels.join(", ") + ")";
      }
      tr.appendChild(cell(new Date(d.timestamp).toLocaleTimeString()));
      tr.appendChild(cell(what));
      tr.appendChild(cell(d.confidence.toFixed(1) + "%"));
      body.appendChild(tr);
    });
  }

  function poll() {
    fetch("/stats").then(function(r) { return r.json(); }).then(render).catch(function() {});
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onopen = function() {
      setDot("ok", "live");
      if (pollTimer) { clearInterval(pollTimer); pollTimer = null; }
    };
    ws.onmessage = function(ev) {
      try { render(JSON.parse(ev.data)); } catch (e) {}
    };
    ws.onclose = function() {
      setDot("err", "offline, polling");
      if (!pollTimer) { pollTimer = setInterval(poll, refreshMs); }
      setTimeout(connect, 5000);
    };
  }

  function toggle(state) {
    fetch("/toggle_detection/" + state, { method: "POST" }).then(poll);
  }

  startBtn.onclick = function() { toggle("true"); };
  stopBtn.onclick = function() { toggle("false"); };
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
