package handler

import (
	"html/template"
	"strings"

	"github.com/Dan9191/edge-dashboard/internal/models"
)

type tile struct {
	ID    string
	Label string
	Text  string
}

type pageData struct {
	Title     string
	Theme     string
	Collapsed bool
	Paused    bool
	Tiles     []tile
	Snapshot  models.Snapshot
	Intervals []int
}

var refreshChoices = []int{0, 10, 30, 60, 300}

var pageTmpl = template.Must(template.New("dashboard").Parse(dashboardHTML))

func tileLabel(id string) string {
	return strings.ReplaceAll(id, "_", " ")
}

const dashboardHTML = `<!doctype html>
<html lang="en" data-theme="{{.Theme}}">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; margin: 0; }
[data-theme="dark"] body { background: #0f172a; color: #e2e8f0; }
.bar { display: flex; gap: 1rem; align-items: center; padding: .75rem 1rem; }
.grid { display: grid; grid-template-columns: repeat(auto-fill, minmax(14rem, 1fr)); gap: .75rem; padding: 1rem; }
.tile { border: 1px solid #334155; border-radius: .5rem; padding: .75rem; }
.tile .v { font-size: 1.4rem; font-weight: 600; }
.collapsed .grid { grid-template-columns: repeat(auto-fill, minmax(10rem, 1fr)); }
</style>
</head>
<body class="{{if .Collapsed}}collapsed{{end}}">
<div class="bar">
  <strong>{{.Title}}</strong>
  <label>Refresh
    <select id="refresh-interval-select">
      {{range .Intervals}}<option value="{{.}}"{{if eq . $.Snapshot.Refresh.Interval}} selected{{end}}>{{if eq . 0}}Manual{{else}}{{.}}s{{end}}</option>{{end}}
    </select>
  </label>
  <button id="pause-refresh-btn">{{if .Paused}}Resume{{else}}Pause{{end}}</button>
  <button id="refresh-now-btn">Refresh</button>
  <span>Next: <span id="refresh-countdown">{{.Snapshot.Refresh.Countdown}}</span></span>
  <span>Updated: <span id="last-updated">{{if not .Snapshot.LastUpdated.IsZero}}{{.Snapshot.LastUpdated.Format "15:04:05"}}{{else}}never{{end}}</span></span>
  <button id="theme-toggle">Theme</button>
</div>
<div class="grid">
{{range .Tiles}}  <div class="tile"><div>{{.Label}}</div><div class="v" id="{{.ID}}">{{.Text}}</div></div>
{{end}}</div>
<script>
(function () {
  function api(method, path, body) {
    return fetch(path, {
      method: method,
      headers: {'Content-Type': 'application/json', 'X-Requested-With': 'XMLHttpRequest'},
      body: body ? JSON.stringify(body) : undefined
    }).then(function (r) { return r.json(); });
  }
  function render(snap) {
    Object.keys(snap.targets || {}).forEach(function (id) {
      var el = document.getElementById(id);
      if (el) { el.textContent = snap.targets[id]; }
    });
    document.getElementById('refresh-countdown').textContent = snap.refresh.countdown;
    document.getElementById('pause-refresh-btn').textContent = snap.refresh.state === 'paused' ? 'Resume' : 'Pause';
    if (snap.last_updated && !snap.last_updated.startsWith('0001')) {
      document.getElementById('last-updated').textContent = new Date(snap.last_updated).toLocaleTimeString();
    }
  }
  var events = new EventSource('/events');
  events.addEventListener('update', function () { api('GET', '/api/dashboard').then(render); });
  events.addEventListener('reload', function (e) { window.location.href = e.data; });
  document.getElementById('refresh-interval-select').addEventListener('change', function (e) {
    api('PUT', '/api/refresh/interval', {interval: parseInt(e.target.value, 10)}).then(function () {
      return api('GET', '/api/dashboard');
    }).then(render);
  });
  document.getElementById('pause-refresh-btn').addEventListener('click', function (e) {
    var path = e.target.textContent === 'Resume' ? '/api/refresh/resume' : '/api/refresh/pause';
    api('POST', path).then(function () { return api('GET', '/api/dashboard'); }).then(render);
  });
  document.getElementById('refresh-now-btn').addEventListener('click', function () {
    api('POST', '/api/refresh').then(render);
  });
  document.getElementById('theme-toggle').addEventListener('click', function () {
    api('POST', '/api/theme/toggle').then(function (r) {
      document.documentElement.setAttribute('data-theme', r.theme);
    });
  });
})();
</script>
</body>
</html>
`
