// Package browser exposes the controlled browser to agents as XML tools.
//
// Tools wrap a single *core.Browser. browser_open, browser_state and
// browser_close are always offered; interaction and extraction tools are
// offered only while a session is open. Lock tools let agents coordinate
// access when several of them share the browser.
//
// The calling agent is identified by core.WithAgent on the context passed to
// Execute. browser_lock and browser_unlock fall back to that id when the
// agent_id argument is empty.
package browser
