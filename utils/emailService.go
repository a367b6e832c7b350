package utils

import (
	"academy/config"
	"fmt"
	"net/smtp"
	"strings"
	"time"
)

// Generic Send Email
func SendEmail(to []string, subject string, htmlBody string) error {
	smtpHost := "smtp.gmail.com"
	smtpPort := "587"

	from := config.AppConfig.EmailSender
	password := config.AppConfig.Password

	// MIME basics
	msg := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n"
	msg += fmt.Sprintf("From: Classia Academy <%s>\r\n", from)
	msg += fmt.Sprintf("To: %s\r\n", strings.Join(to, ","))
	msg += fmt.Sprintf("Subject: %s\r\n\r\n", subject)
	msg += htmlBody

	auth := smtp.PlainAuth("", from, password, smtpHost)

	err := smtp.SendMail(smtpHost+":"+smtpPort, auth, from, to, []byte(msg))
	if err != nil {
		fmt.Println("Error sending email:", err)
		return err
	}
	return nil
}

// HTML Wrapper (Professional Look)
func getEmailTemplate(title string, bodyContent string) string {
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F6F6F6; margin: 0; padding: 0; }
			.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden; box-shadow: 0 4px 15px rgba(0,0,0,0.05); }
			.header { background-color: #00004D; padding: 30px; text-align: center; }
			.header h1 { color: #FFFFFF; margin: 0; font-size: 24px; letter-spacing: 1px; }
			.content { padding: 40px 30px; color: #00004D; line-height: 1.6; }
			.content h2 { color: #00004D; margin-top: 0; }
			.footer { background-color: #F6F6F6; padding: 20px; text-align: center; font-size: 12px; color: #666666; border-top: 1px solid #E0E0E0; }
			.btn { display: inline-block; padding: 12px 24px; background-color: #d7b56d; color: #FFFFFF; text-decoration: none; border-radius: 4px; font-weight: bold; margin-top: 20px; }
			.info-box { background: #E8F0FE; padding: 15px; border-radius: 4px; border-left: 4px solid #d7b56d; margin: 20px 0; }
			.action-badge { display: inline-block; padding: 4px 8px; border-radius: 4px; font-size: 12px; font-weight: bold; color: white; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header">
				<h1>CLASSIA ACADEMY</h1>
			</div>
			<div class="content">
				<h2>%s</h2>
				%s
			</div>
			<div class="footer">
				&copy; 2026 Classia Academy. All rights reserved.<br>
				Trading involves risk. Please read all documents carefully.
			</div>
		</div>
	</body>
	</html>
	`, title, bodyContent)
}

// --- Triggers ---

// 1. Welcome / Signup
func SendWelcomeEmail(email, name string) {
	subject := "Welcome to Classia Academy"
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Welcome to <strong>Classia Academy</strong>! We are thrilled to have you onboard.</p>
		<p>Your account has been successfully created. Activate your access key to unlock your course, the chart analysis assistant or the recommendation feed.</p>
		<p>If you have any questions, feel free to reach out to our support team.</p>
	`, name)

	go SendEmail([]string{email}, subject, getEmailTemplate("Welcome Onboard!", body))
}

// 2. Key activation confirmation
func SendKeyActivatedEmail(email, productName string) {
	subject := "Access Activated: " + productName
	body := fmt.Sprintf(`
		<p>Your activation key has been redeemed successfully.</p>
		<p>You now have access to <strong>%s</strong>.</p>
		<div class="info-box">
			<strong>Next Steps:</strong> Log in to your dashboard to get started.
		</div>
	`, productName)

	go SendEmail([]string{email}, subject, getEmailTemplate("Access Activated", body))
}

// 3. Subscription expiry reminder (sent by the daily scheduler)
func SendSubscriptionExpiryReminder(email, name, featureName string, expiresAt time.Time) {
	subject := "Your " + featureName + " subscription is expiring soon"
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Your subscription to <strong>%s</strong> is expiring on <strong>%s</strong>.</p>
		<p>Redeem a new activation key before then to keep uninterrupted access.</p>
	`, name, featureName, expiresAt.Format("January 2, 2006"))

	go SendEmail([]string{email}, subject, getEmailTemplate("Subscription Expiring Soon", body))
}

// 4. New recommendation (sent by the broadcast worker)
func BuildRecommendationEmail(symbol, action, title, message string) (string, string) {
	subject := "New Trade Recommendation"
	if symbol != "" {
		subject = fmt.Sprintf("New Recommendation: %s %s", action, symbol)
	}
	body := fmt.Sprintf(`
		<p>A new recommendation has been posted to your feed.</p>
		<div class="info-box">
			<span class="action-badge" style="background-color:#00004D;">%s</span>
			<p><strong>%s</strong></p>
			<p>%s</p>
		</div>
		<p>Open your dashboard for the full details and history.</p>
	`, action, title, message)
	return subject, getEmailTemplate(subject, body)
}
