// Package identity implements the account and team lifecycle for a
// multi-tenant product: signed session tokens, a cookie session carrier,
// validated form actions, and a catalog of atomic workflows (sign-up,
// sign-in, invitations, credential changes, membership changes) executed
// against a Bun backed SQL store.
//
// Workflows:
//   - Each workflow is a Message/Handler pair (command_*.go). Execute runs
//     every precondition check and mutation inside a single transaction via
//     RepositoryManager.RunInTx, and appends its ActivityLog records in the
//     same transaction. Either everything commits or nothing does.
//   - Precondition failures come back as rich errors with a generic,
//     caller-safe message. The engine never distinguishes "no such account"
//     from "wrong password" at its boundary.
//
// Sessions:
//   - TokenService signs HS256 tokens binding a user id to an absolute
//     expiry. There is no server-side revocation: compromise is bounded by
//     the token TTL or by rotating the signing secret, which invalidates
//     every outstanding token at once.
//   - SessionManager persists the token in an httpOnly, secure, same-site
//     cookie and resolves the current user from it, skipping soft-deleted
//     accounts.
//
// Actions:
//   - Validated and ValidatedWithUser wrap an operation with form binding
//     and ozzo-validation. Validation failures are data (ActionState.Error);
//     a missing session on an authenticated action is the only failure that
//     interrupts control flow.
package identity
