// Package bot implements the Telegram interface of wbwatch.
//
// Users reach the parser menu once an admin has granted access. Admins
// manage the global watch list (Excel upload, supplier price lists, single
// range edits), the site discount and the notification channel. The bot
// also delivers the monitor's channel notifications through SendMarkdown.
package bot
