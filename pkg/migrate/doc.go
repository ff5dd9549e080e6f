// Package migrate contains the resumable batch loop that walks the catalog
// page by page, rewrites image URL metadata, and writes changed items back.
//
// The loop is deliberately serial: one page fetch at a time, one item update
// at a time, with configurable delays between both. Progress is recorded in
// three places with distinct roles:
//
//   - the checkpoint, a durable (page, last item id) cursor used to resume
//   - the CSV audit log, one row per meaningful event, never read back
//   - in-memory run counters, polled by the status endpoint
//
// A Supervisor wraps Runner.Run and restarts it after a fixed delay when it
// fails, so transient outages cost at most the current item.
package migrate
