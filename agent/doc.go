// Package agent implements the agentic loop that turns a chat-completion
// endpoint into a coding assistant.
//
// A Session owns the conversation history and drives one turn at a time:
// append the user input, send the full history, extract tool calls from the
// reply, execute them in order, append the results, and go again. The turn
// ends when a reply asks for no tools. The loop is deliberately plain: one
// control goroutine, no retries, no cap on rounds. When the model misbehaves
// the place to stop it is the endpoint or the user's interrupt, not a
// heuristic here.
//
// Tools live in a Registry in registration order, each declared as a name, a
// description, and a typed parameter list that Schema expands into the JSON
// Schema the model sees. The Registry's Execute method is the error boundary:
// unknown names, invalid arguments, and handler failures all come back as
// error-prefixed result text answering the call, so the model gets to read
// its own mistakes instead of the loop dying on them.
//
// The built-in toolset (RegisterCoreTools) covers read, write, edit, glob,
// grep, and bash, all acting through an ExecutionEnvironment so tests can run
// against a scratch directory. Hosts observe the loop through a synchronous
// Sink of Events, which is how a REPL renders text, tool activity, and live
// shell output as they happen.
package agent
