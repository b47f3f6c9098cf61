// Package render produces localized email copy for exchange notifications.
package render

import (
	"strings"

	"golang.org/x/text/message"

	"github.com/sommlab/ai.exchange/internal/services/exchange/domain"
)

// Localizer is the minimal message-printer contract required by the renderer.
type Localizer interface {
	Sprintf(key message.Reference, args ...any) string
}

// Email is rendered copy ready for delivery.
type Email struct {
	Subject string
	Body    string
}

// MaskedAuthor is the display name shown in API payloads in place of an
// anonymous author's real name.
func MaskedAuthor(loc Localizer) string {
	return loc.Sprintf("Faculty Member")
}

// mailAuthorLabel labels the "Posted by" line in notification emails.
// Named authors are still reduced to a generic faculty label so real
// names never land in inboxes.
func mailAuthorLabel(loc Localizer, anonymous bool) string {
	if anonymous {
		return loc.Sprintf("Anonymous")
	}
	return loc.Sprintf("Faculty Member")
}

// Verification renders the registration confirmation email.
func Verification(loc Localizer, user domain.User, code string) Email {
	return Email{
		Subject: loc.Sprintf("Verify Your Email - The AI Exchange"),
		Body: loc.Sprintf(`Hi %s,

Welcome to The AI Exchange! Please verify your email address to complete your registration.

Your verification code is: %s

This code will expire in 60 minutes.

Enter this code on the verification page to activate your account.

If you did not create this account, please ignore this email.

Do not share this code with anyone.

Best regards,
The AI Exchange Team
`, user.FullName, code),
	}
}

// PasswordReset renders the password recovery email.
func PasswordReset(loc Localizer, user domain.User, code string) Email {
	return Email{
		Subject: loc.Sprintf("Password Reset Code for The AI Exchange"),
		Body: loc.Sprintf(`Hi %s,

You requested a password reset for your The AI Exchange account.

Your password reset code is: %s

This code will expire in 30 minutes.

If you did not request a password reset, please ignore this email and your password will remain unchanged.

Do not share this code with anyone. The AI Exchange team will never ask you for your reset code.

Best regards,
The AI Exchange Team
`, user.FullName, code),
	}
}

// NewRequest renders the notification sent to tag subscribers when a
// matching request is posted.
func NewRequest(loc Localizer, subscriber domain.User, request domain.Resource, basePath string) Email {
	return Email{
		Subject: loc.Sprintf("New AI Request: %s", request.Title),
		Body: loc.Sprintf(`Hi %s,

A new request has been posted on The AI Exchange that matches your interests:

Title: %s
Tags: %s
Posted by: %s

View the request and submit your solution:
%s/resources/%s

You're receiving this because you're subscribed to tags related to this request.
You can adjust your notification preferences in your account settings.

Best regards,
The AI Exchange Team
`,
			subscriber.FullName,
			request.Title,
			strings.Join(request.AllTags(), ", "),
			mailAuthorLabel(loc, request.IsAnonymous),
			basePath,
			request.ID,
		),
	}
}

// NewSolution renders the notification sent to a requester when a
// solution is posted to their request.
func NewSolution(loc Localizer, requester domain.User, solution domain.Resource, basePath string) Email {
	return Email{
		Subject: loc.Sprintf("New Solution to Your Request: %s", solution.Title),
		Body: loc.Sprintf(`Hi %s,

Someone has posted a solution to your request!

Solution: %s
Posted by: %s

View the solution and other responses:
%s/resources/%s

You're receiving this because you posted a request on The AI Exchange.
You can adjust your notification preferences in your account settings.

Best regards,
The AI Exchange Team
`,
			requester.FullName,
			solution.Title,
			mailAuthorLabel(loc, solution.IsAnonymous),
			basePath,
			solution.ParentID,
		),
	}
}
