// Package api exposes the cafe catalog over HTTP.
//
// Routes
//
//   - GET    /                    landing page (HTML)
//   - GET    /random              {"cafe": {...}}
//   - GET    /all                 {"cafes": [...]}
//   - GET    /search?loc=         {"cafe": {...}}, or the not-found envelope with 200
//   - POST   /add                 form fields, {"response": {"success": "..."}}
//   - PATCH  /update-price/:id    ?new_price=, {"success": {"success": "Done"}}
//   - DELETE /report-closed/:id   ?api-key=, {"success": {"success": "Done"}}
//
// Error Model
//
// Every error body has the shape {"error": {"<label>": "Sorry"}}. Missing
// records, unknown ids and a wrong delete key all produce the same
// {"error": {"Not found": "Sorry"}} envelope, so a caller cannot tell a
// wrong key from a missing cafe. Clients should branch on the top-level key
// rather than the status code because /search answers 200 on a miss.
//
// Server
//
// NewServer wires handlers onto a gin engine hosted by an http.Server with
// conservative timeouts. Start serves in a goroutine; Stop shuts down
// gracefully. The store is injected as a CafeStore so handlers hold no
// package-level state.
package api
