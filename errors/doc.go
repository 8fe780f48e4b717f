/*
Package errors implements custom error interfaces for escrowd.

Reuse the root errors declared in this package whenever possible and
register a custom error only when the failure is specific to an extension.
Use Register(code, description) for that. The code is the ABCI code that
lets clients distinguish error kinds without parsing messages.

Create errors with ErrXyz.New("...") or errors.Wrap(err, "...") at the
point of failure so that a stacktrace is attached. Only the most inner
wrap records the stacktrace.

Formatting an error with fmt gives more context:

	%s is just the error message
	%+v is the full stack trace
	%v appends a compressed [filename:line] where the error was created
*/
package errors
