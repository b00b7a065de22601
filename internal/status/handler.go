package status

import (
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"time"
)

var startTime = time.Now()

// APIHandler serves the machine-readable instance status consumed by the
// admin dashboard's branch probes.
type APIHandler struct {
	Timeline *Timeline
	Branch   string
}

func (h *APIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	overall := "ok"
	message := "Ready"
	if h.Timeline.HasErrors() {
		overall = "error"
		message = "Errors Detected"
	}
	hostname, _ := os.Hostname()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":   overall,
		"message":  message,
		"branch":   h.Branch,
		"hostname": hostname,
		"uptime":   time.Since(startTime).Round(time.Second).String(),
		"events":   h.Timeline.Recent(),
	})
}

var pageTemplate = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta http-equiv="refresh" content="60">
<title>{{.Hostname}} — call router status</title>
<style>
body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; background: #f0f2f5; color: #1c1e21; margin: 0; }
.container { max-width: 900px; margin: 2em auto; padding: 0 1em; }
.header { background: #fff; border-radius: 8px; padding: 20px; box-shadow: 0 2px 4px rgba(0,0,0,.1); margin-bottom: 20px; }
.name { font-size: 24px; font-weight: bold; }
.ok { color: #31a24c; } .error { color: #f02849; }
.event { background: #fff; border-radius: 8px; padding: 12px 16px; margin-bottom: 12px; box-shadow: 0 2px 4px rgba(0,0,0,.1); }
.event .title { font-weight: bold; }
.event .time { font-size: 12px; color: #606770; }
.event pre { background: #f5f6f7; padding: 10px; border-radius: 6px; white-space: pre-wrap; font-size: 13px; }
</style>
</head>
<body>
<div class="container">
  <div class="header">
    <span class="name">{{.Hostname}}</span>
    <div class="{{.Overall}}">{{.Message}} — up {{.Uptime}}</div>
  </div>
  {{range .Events}}
  <div class="event">
    <div class="title {{if .Error}}error{{else}}ok{{end}}">{{.Title}}</div>
    <div class="time">{{.Timestamp.Format "Jan 02, 03:04:05 PM"}}</div>
    {{if .Detail}}<pre>{{.Detail}}</pre>{{end}}
  </div>
  {{end}}
</div>
</body>
</html>`))

// PageHandler renders the human-facing status timeline.
type PageHandler struct {
	Timeline *Timeline
	Logger   *slog.Logger
}

func (h *PageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		// Mark errors resolved and bounce back to the page.
		h.Timeline.Resolve()
		h.Logger.Info("status errors marked resolved")
		http.Redirect(w, r, "/status", http.StatusSeeOther)
		return
	}
	hostname, _ := os.Hostname()
	overall, message := "ok", "Ready"
	if h.Timeline.HasErrors() {
		overall, message = "error", "Errors Detected"
	}
	data := struct {
		Hostname string
		Overall  string
		Message  string
		Uptime   string
		Events   []Event
	}{
		Hostname: hostname,
		Overall:  overall,
		Message:  message,
		Uptime:   time.Since(startTime).Round(time.Second).String(),
		Events:   h.Timeline.Recent(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		h.Logger.Error("render status page", "err", err)
	}
}

// Summary composes the SMS status report sent in reply to an inbound text.
func Summary() string {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	hostname, _ := os.Hostname()
	return fmt.Sprintf(
		"SERVER STATUS\nHost: %s\nUptime: %s\nGoroutines: %d\nMemory: %dMB",
		hostname,
		time.Since(startTime).Round(time.Second),
		runtime.NumGoroutine(),
		mem.Alloc/1024/1024,
	)
}
