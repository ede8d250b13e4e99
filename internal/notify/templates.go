package notify

import (
	"bytes"
	"html/template"
	"time"
)

const layout = `{{define "layout"}}<!doctype html>
<html><body style="margin:0;padding:0;background:#f4f4f7;font-family:Helvetica,Arial,sans-serif;color:#1f2933">
<table width="100%" cellpadding="0" cellspacing="0"><tr><td align="center" style="padding:24px">
<table width="560" cellpadding="0" cellspacing="0" style="background:#ffffff;border-radius:8px;padding:32px">
<tr><td>{{template "content" .}}</td></tr>
<tr><td style="padding-top:24px;font-size:12px;color:#7b8794">Sent by {{.AppName}}</td></tr>
</table></td></tr></table>
</body></html>{{end}}`

var templates = map[string]string{
	"invite": `{{define "content"}}
<h2>You're invited to join {{.OrgName}}</h2>
<p>{{if .InviterName}}{{.InviterName}} invited you{{else}}You have been invited{{end}} to help manage events for <strong>{{.OrgName}}</strong> as {{.Role}}.</p>
<p><a href="{{.AcceptURL}}" style="background:#5b3cc4;color:#fff;padding:12px 20px;border-radius:6px;text-decoration:none">Accept invitation</a></p>
<p style="font-size:12px;color:#7b8794">This link expires on {{fmtDate .ExpiresAt}}.</p>
{{end}}`,

	"welcome": `{{define "content"}}
<h2>Welcome{{if .Name}}, {{.Name}}{{end}}!</h2>
<p>Your account is ready. Create your first event and start selling tickets in minutes.</p>
<p><a href="{{.DashboardURL}}">Open your dashboard</a></p>
{{end}}`,

	"verify": `{{define "content"}}
<h2>Verify your email</h2>
<p>Click the button below to confirm your email address.</p>
<p><a href="{{.Link}}" style="background:#5b3cc4;color:#fff;padding:12px 20px;border-radius:6px;text-decoration:none">Verify email</a></p>
{{end}}`,

	"reset": `{{define "content"}}
<h2>Reset your password</h2>
<p>We received a request to reset your password. The link is valid for one hour.</p>
<p><a href="{{.Link}}">Choose a new password</a></p>
<p style="font-size:12px;color:#7b8794">If you did not ask for this, ignore this email.</p>
{{end}}`,

	"ticket": `{{define "content"}}
<h2>Your ticket for {{.EventTitle}}</h2>
<p>Hi {{.Name}}, you're registered.</p>
<p><strong>When:</strong> {{fmtDate .StartsAt}}<br><strong>Where:</strong> {{.Venue}}</p>
<p style="text-align:center"><img src="{{.QRImageURL}}" width="240" height="240" alt="Ticket QR code"><br>
<span style="font-family:monospace;font-size:16px">{{.TicketID}}</span></p>
<p style="font-size:12px;color:#7b8794">Show this QR code at the entrance.</p>
{{end}}`,

	"bulk": `{{define "content"}}{{.Body}}{{end}}`,

	"event_update": `{{define "content"}}
<h2>Update: {{.EventTitle}}</h2>
<p>Hi {{.Name}}, there are changes to an event you're registered for.</p>
{{if .Message}}<div>{{.Message}}</div>{{end}}
<p><strong>When:</strong> {{fmtDate .StartsAt}}<br><strong>Where:</strong> {{.Venue}}</p>
{{end}}`,

	"event_cancelled": `{{define "content"}}
<h2>{{.EventTitle}} has been cancelled</h2>
<p>Hi {{.Name}}, we're sorry to let you know that this event will no longer take place.</p>
{{if .Message}}<div>{{.Message}}</div>{{end}}
{{end}}`,

	"test": `{{define "content"}}
<h2>Test email</h2>
<p>Email delivery is working. Sent at {{fmtDate .SentAt}}.</p>
{{end}}`,
}

var funcs = template.FuncMap{
	"fmtDate": func(t time.Time) string {
		if t.IsZero() {
			return "TBA"
		}
		return t.Format("Mon, 2 Jan 2006 15:04 MST")
	},
}

var parsed = func() map[string]*template.Template {
	out := make(map[string]*template.Template, len(templates))
	for name, body := range templates {
		t := template.Must(template.New(name).Funcs(funcs).Parse(layout))
		out[name] = template.Must(t.Parse(body))
	}
	return out
}()

func render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := parsed[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
