// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// Template names accepted by Mailer.Send.
const (
	TemplateSignInCode   = "sign_in_code"
	TemplateImageRemoved = "image_removed"
	TemplateSubmitted    = "company_submitted"
)

// SignInCodeData holds data for the sign-in code email.
type SignInCodeData struct {
	SiteName  string
	Code      string
	ExpiresIn string // e.g., "10 minutes"
}

// BuildSignInCodeEmail creates a sign-in code email with both HTML and text bodies.
func BuildSignInCodeEmail(data SignInCodeData) Email {
	return Email{
		To:       "", // Set by caller
		Subject:  fmt.Sprintf("Your %s sign-in code", data.SiteName),
		TextBody: buildSignInCodeText(data),
		HTMLBody: render(signInCodeHTML, data),
	}
}

func buildSignInCodeText(data SignInCodeData) string {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("Your %s sign-in code is: %s\n\n", data.SiteName, data.Code))
	buf.WriteString(fmt.Sprintf("This code expires in %s.\n\n", data.ExpiresIn))
	buf.WriteString("If you did not request this code, you can safely ignore this email.\n")
	return buf.String()
}

// NoticeData holds data for the short notices sent about a company.
type NoticeData struct {
	SiteName    string
	Name        string
	Company     string
	Participant string
	Kind        string
}

// BuildImageRemovedEmail tells a user that a document image was removed and
// must be uploaded again before the company can be filed.
func BuildImageRemovedEmail(data NoticeData) Email {
	who := data.Kind
	if data.Participant != "" {
		who = fmt.Sprintf("%s %s", data.Kind, data.Participant)
	}
	lines := []string{
		fmt.Sprintf("The identifying document image for %s of %s was removed.", who, data.Company),
		"Please upload a new image before submitting the report.",
	}
	return notice(data, fmt.Sprintf("%s: document image removed", data.Company), lines)
}

// BuildSubmittedEmail confirms that a company report was submitted.
func BuildSubmittedEmail(data NoticeData) Email {
	lines := []string{
		fmt.Sprintf("The beneficial ownership report for %s was submitted.", data.Company),
		"No further changes can be made to this company.",
	}
	return notice(data, fmt.Sprintf("%s: report submitted", data.Company), lines)
}

type noticeView struct {
	SiteName string
	Greeting string
	Lines    []string
}

func notice(data NoticeData, subject string, lines []string) Email {
	greeting := "Hello,"
	if strings.TrimSpace(data.Name) != "" {
		greeting = fmt.Sprintf("Hello %s,", data.Name)
	}
	var text bytes.Buffer
	text.WriteString(greeting + "\n\n")
	for _, l := range lines {
		text.WriteString(l + "\n")
	}
	return Email{
		Subject:  subject,
		TextBody: text.String(),
		HTMLBody: render(noticeHTML, noticeView{SiteName: data.SiteName, Greeting: greeting, Lines: lines}),
	}
}

var (
	signInCodeHTML = template.Must(template.New("sign_in_code").Parse(signInCodeHTMLTemplate))
	noticeHTML     = template.Must(template.New("notice").Parse(noticeHTMLTemplate))
)

func render(t *template.Template, data any) string {
	var buf bytes.Buffer
	_ = t.Execute(&buf, data)
	return buf.String()
}

const noticeHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 32px 32px 24px; text-align: center; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 24px; font-weight: 600; color: #4f46e5;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px;">
              <p style="margin: 0 0 16px; font-size: 16px; color: #374151;">{{.Greeting}}</p>
              {{range .Lines}}<p style="margin: 0 0 12px; font-size: 15px; color: #374151; line-height: 1.5;">{{.}}</p>
              {{end}}
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`

const signInCodeHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Sign-in Code</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px; box-shadow: 0 2px 4px rgba(0, 0, 0, 0.1);">
          <!-- Header -->
          <tr>
            <td style="padding: 32px 32px 24px; text-align: center; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 24px; font-weight: 600; color: #4f46e5;">{{.SiteName}}</h1>
            </td>
          </tr>

          <!-- Content -->
          <tr>
            <td style="padding: 32px;">
              <p style="margin: 0 0 24px; font-size: 16px; color: #374151; line-height: 1.5;">
                Your sign-in code is:
              </p>

              <!-- Code Box -->
              <div style="background-color: #f3f4f6; border-radius: 8px; padding: 24px; text-align: center; margin-bottom: 24px;">
                <span style="font-size: 32px; font-weight: 700; letter-spacing: 8px; color: #1f2937; font-family: 'Courier New', monospace;">{{.Code}}</span>
              </div>

              <p style="margin: 24px 0 0; font-size: 13px; color: #9ca3af; text-align: center;">
                This code expires in {{.ExpiresIn}}.
              </p>
            </td>
          </tr>

          <!-- Footer -->
          <tr>
            <td style="padding: 24px 32px; background-color: #f9fafb; border-top: 1px solid #e5e7eb; border-radius: 0 0 8px 8px;">
              <p style="margin: 0; font-size: 12px; color: #9ca3af; text-align: center;">
                If you did not request this code, you can safely ignore this email.
              </p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`
