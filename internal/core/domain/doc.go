// Package domain defines the error vocabulary of kvopts.
//
// Every failure a load can produce (unreadable file, malformed syntax,
// unknown option, bad value) is reported as a *DomainError. The rendered
// message is the user-facing contract; the code lets Go callers branch
// with errors.Is without parsing text.
package domain
