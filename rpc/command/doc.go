// Package command turns request frames into executable commands.
//
// A request is an array whose first element is the command name followed by its
// arguments, each a simple or bulk string:
//
//	GET key                                 -> Bulk or Null
//	SET key value [EX seconds|PX millis]    -> +OK
//	DEL key [key ...]                       -> Integer (number of deleted keys)
//	EXISTS key [key ...]                    -> Integer (number of existing keys)
//	PING [message]                          -> +PONG or Bulk(message)
//
// Any other name parses into an Unknown command that responds with an error frame.
// Requests that do not have the shape of a command fail to parse with ErrProtocol,
// wrong arguments of a known command fail with ErrSyntax. In both cases the
// connection stays usable; the server answers with ErrorFrame(err).
//
// Commands also produce their own wire form through Args, which the client uses
// to send requests.
package command
