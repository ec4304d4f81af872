package notifysvc

import (
	"net/mail"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/alert"
)

type emailNotifier struct {
	mailSvc core.EmailService
}

var _ alert.Notifier = (*emailNotifier)(nil)

// NewEmailNotifier delivers alerts as plain-text emails via mailSvc.
func NewEmailNotifier(mailSvc core.EmailService) *emailNotifier {
	return &emailNotifier{mailSvc: mailSvc}
}

func (n *emailNotifier) Notify(alerts ...alert.Alert) {
	messages := make([]*core.EmailMessage, 0, len(alerts))
	for _, a := range alerts {
		if a.User.Email == "" {
			continue
		}
		messages = append(messages, &core.EmailMessage{
			To:      []mail.Address{{Name: a.User.Name, Address: a.User.Email}},
			Subject: a.Title,
			BodyStr: a.Body,
		})
	}
	n.mailSvc.SendMessages(messages...)
}
