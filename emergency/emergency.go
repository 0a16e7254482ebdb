// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package emergency serves a diagnostic page after a fatal failure.
//
// Every request gets the same page, with HTTP status 500, showing the
// failure and a link to reset the device. The link is only honored when it
// carries the failure capture time in epoch milliseconds, so that stray
// requests can't reboot the device.
package emergency

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/glog"
)

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<head><meta charset=utf-8>
<style>
body { margin: 0 auto; padding: 1em;
 max-width: 960px; color: #d2f3ff; background: #09373b; }
a, a:visited { color: #5dcef5; } p { font-weight: bold; }
</style>
<body><h2>Fatal Error - Unexpected component failure</h2>
<pre>{{.Text}}</pre>
<p id=when></p>
<a href="reset.{{.Token}}">Reset Device</a>
{{if .Device}}<footer><small>device {{.Device}}</small></footer>{{end}}
<script>
let tz = Intl.DateTimeFormat().resolvedOptions().timeZone,
 dt = new Intl.DateTimeFormat('sv-SE', {
  timeZone: tz, year: 'numeric', month: '2-digit', day: '2-digit',
  hour12: false, hour: '2-digit', minute: '2-digit', second: '2-digit' })
 .format(new Date(Date.now() - {{.Elapsed}}))
document.getElementById('when').textContent = 'Error date/time: ' + dt + ' [' + tz + ']'
</script>
`))

// Opts configures the page.
type Opts struct {
	// Text describes the failure. It is HTML escaped.
	Text string
	// Time is when the failure was captured. It also makes the reset token.
	Time time.Time
	// Device is shown in the page footer when not empty.
	Device string
	// Reset is called on a valid reset request, after the reply was sent.
	Reset func() error
}

// Token returns the reset token for a failure captured at t.
func Token(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// NewHandler returns the handler answering every request.
func NewHandler(opts *Opts) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.SetHTMLTemplate(page)
	token := Token(opts.Time)
	r.NoRoute(func(c *gin.Context) {
		if strings.HasSuffix(strings.ToLower(c.Request.URL.Path), "/reset."+token) {
			glog.Warningf("emergency: reset requested by %s", c.ClientIP())
			c.String(http.StatusOK, "Resetting device\n")
			c.Writer.Flush()
			if opts.Reset != nil {
				if err := opts.Reset(); err != nil {
					glog.Errorf("emergency: reset: %v", err)
				}
			}
			return
		}
		c.Header("Server", "co2log")
		c.Header("Cache-Control", "no-cache")
		c.HTML(http.StatusInternalServerError, "page", gin.H{
			"Text":    opts.Text,
			"Token":   token,
			"Device":  opts.Device,
			"Elapsed": time.Since(opts.Time).Milliseconds(),
		})
	})
	return r
}

// ListenAndServe serves the page on addr until ctx is done.
func ListenAndServe(ctx context.Context, addr string, opts *Opts) error {
	srv := &http.Server{Addr: addr, Handler: NewHandler(opts)}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()
	glog.Infof("emergency: serving failure page on %s", addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}
