// Package account provides email based user accounts for server rendered
// go-router applications on the fiber adapter: signup with email
// confirmation, login with throttling, profile editing and a small staff area.
//
// Storage:
//   - Users and their one-to-one Profile live in bun models. Migrations for
//     sqlite and postgres are embedded and applied with Migrate.
//   - RepositoryManager exposes the Users and Profiles repositories and runs
//     multi table writes in a single transaction.
//
// Authentication:
//   - ModelBackend checks credentials against the users table. Failed attempts
//     are counted and MaxLoginAttempts within CoolDownPeriod lock the account
//     until the period runs out.
//   - Sessions are cookie based, the session only stores the user id.
//     RequestScope loads it on the fiber app before the router handlers run.
//
// Commands:
//   - RegisterUserHandler and ConfirmEmailHandler run the signup and
//     confirmation flows. HTTP handlers and the CLI both go through them.
//
// Email confirmation:
//   - TokenCodec signs short lived confirmation tokens. Decode tells apart a
//     fresh token from an expired one so the handler can send a new link.
//   - Handlers never send mail themselves. They dispatch a MailJob and a
//     MailWorker renders and delivers it out of band.
//
// Localization:
//   - Messages that outlive a redirect use go-router flash cookies.
//   - Forms and flash messages are translated with golang.org/x/text. The
//     locale is negotiated from Accept-Language, Ukrainian is the default.
package account
