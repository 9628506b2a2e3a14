package notify

import (
	"bytes"
	"html/template"
)

// EmailData fills the caretaker alert template.
type EmailData struct {
	CaretakerName  string
	PatientName    string
	MedicationName string
	Dosage         string
	Time           string
	Missed         bool // false renders the settings-verification variant
}

var emailTmpl = template.Must(template.New("alert").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: ui-sans-serif, system-ui, -apple-system, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f8fafc; color: #334155; line-height: 1.5; margin: 0; padding: 0;">
  <div style="max-width: 600px; margin: 20px auto; background-color: #ffffff; overflow: hidden;">
    <div style="padding: 24px; border-bottom: 1px dashed #e2e8f0;">
      <span style="font-weight: 700; font-size: 18px; color: #0f172a;">&#10010; Medi Care</span>
    </div>
    <div style="padding: 32px;">
      <p style="margin-top: 0; font-size: 16px;">Hello {{.CaretakerName}},</p>
      {{if .Missed}}
      <p style="font-size: 16px;">We detected that <strong style="color: #0f172a;">{{.PatientName}}</strong> has missed a scheduled dose.</p>
      <div style="margin: 24px 0; border-radius: 16px; overflow: hidden; border: 1px solid #fee2e2;">
        <div style="background-color: #fef2f2; padding: 16px; border-bottom: 1px solid #fee2e2;">
          <h4 style="margin: 0; font-weight: 700; color: #7f1d1d; font-size: 14px;">Missed Dose Details</h4>
          <p style="margin: 0; font-size: 12px; color: #b91c1c;">Recorded at {{.Time}} today</p>
        </div>
        <div style="padding: 16px;">
          <table width="100%" style="font-size: 14px;" cellpadding="0" cellspacing="0" border="0">
            <tr>
              <td style="padding-bottom: 8px; color: #64748b;">Medication:</td>
              <td style="padding-bottom: 8px; text-align: right; font-weight: 700; color: #0f172a;">{{.MedicationName}}</td>
            </tr>
            <tr>
              <td style="padding-bottom: 8px; color: #64748b;">Dosage:</td>
              <td style="padding-bottom: 8px; text-align: right; font-weight: 700; color: #0f172a;">{{.Dosage}}</td>
            </tr>
            <tr>
              <td style="color: #64748b;">Scheduled Time:</td>
              <td style="text-align: right; font-weight: 700; color: #0f172a;">{{.Time}}</td>
            </tr>
          </table>
        </div>
      </div>
      <p style="margin-bottom: 24px;">Please verify with the patient. You can log this dose manually via the dashboard if it was taken properly.</p>
      {{else}}
      <p style="font-size: 16px;">This is a <strong>verification email</strong> to confirm that your MediCare notification settings for <strong style="color: #0f172a;">{{.PatientName}}</strong> are correctly configured.</p>
      <div style="margin: 24px 0; border-radius: 16px; overflow: hidden; border: 1px solid #dbeafe;">
        <div style="background-color: #eff6ff; padding: 16px; border-bottom: 1px solid #dbeafe;">
          <h4 style="margin: 0; font-weight: 700; color: #1e3a8a; font-size: 14px;">System Status</h4>
          <p style="margin: 0; font-size: 12px; color: #1d4ed8;">All systems operational</p>
        </div>
        <div style="padding: 16px;">
          <table width="100%" style="font-size: 14px;" cellpadding="0" cellspacing="0" border="0">
            <tr>
              <td style="padding-bottom: 8px; color: #64748b;">Alerts:</td>
              <td style="padding-bottom: 8px; text-align: right; font-weight: 700; color: #0f172a;">Active</td>
            </tr>
            <tr>
              <td style="color: #64748b;">Role:</td>
              <td style="text-align: right; font-weight: 700; color: #0f172a;">Caretaker</td>
            </tr>
          </table>
        </div>
      </div>
      <p style="margin-bottom: 24px;">You can now receive alerts for missed medications.</p>
      {{end}}
      <div style="padding-top: 32px; border-top: 1px solid #f1f5f9; text-align: center;">
        <p style="margin-top: 24px; font-size: 12px; color: #94a3b8;">&copy; 2024 MediCare Inc. &bull; Automated Alert System</p>
      </div>
    </div>
  </div>
</body>
</html>
`))

// RenderEmail produces the HTML body for a caretaker email.
func RenderEmail(d EmailData) (string, error) {
	if d.CaretakerName == "" {
		d.CaretakerName = "Caretaker"
	}
	var buf bytes.Buffer
	if err := emailTmpl.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}
