// Package optionsapi exposes a record store over a small JSON API: list a
// record kind (with optional search and limit), create a record and update a
// record. It is the server side the httpsource adapter talks to and backs
// the CLI's serve command.
//
// Routes, relative to the mount path:
//
//	GET    /{kind}?q=&limit=   {"data": [records]}
//	POST   /{kind}             {"id": "..."}
//	PATCH  /{kind}/{id}        {"id": "..."}
//
// Store errors are mapped back onto status codes: unauthorized to 401,
// transient failures to 503 and field errors to 422 {"errors": {...}}.
package optionsapi
