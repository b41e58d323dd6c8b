/*
Package insight generates short operational briefings from store snapshots
using the Gemini API. The service degrades cleanly: without an API key every
call returns ErrDisabled and nothing else in the application is affected.
*/
package insight
