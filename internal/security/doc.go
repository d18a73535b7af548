// Package security issues identity tokens and sanitizes user input.
//
// Identity tokens are HS256 JWTs whose subject is the identity key that
// progress is stored under. Input validation keeps search terms, titles
// and company names free of control characters and markup.
package security
