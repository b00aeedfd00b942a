package notifier

import (
	"fmt"
	"mime"
	"strings"
)

const mimeBoundary = "boundary_shiftwatch_email"

// buildMIME renders msg as a multipart/alternative message with a plain-text
// and an HTML part.
func buildMIME(fromAddress, fromName string, msg Message) string {
	from := fromAddress
	if fromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", fromName), fromAddress)
	}

	return strings.Join([]string{
		"From: " + from,
		"To: " + msg.To,
		"Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject),
		"MIME-Version: 1.0",
		"Content-Type: multipart/alternative; boundary=" + mimeBoundary,
		"",
		"--" + mimeBoundary,
		"Content-Type: text/plain; charset=UTF-8",
		"Content-Transfer-Encoding: 8bit",
		"",
		msg.TextBody,
		"",
		"--" + mimeBoundary,
		"Content-Type: text/html; charset=UTF-8",
		"Content-Transfer-Encoding: 8bit",
		"",
		msg.HTMLBody,
		"",
		"--" + mimeBoundary + "--",
		"",
	}, "\r\n")
}
