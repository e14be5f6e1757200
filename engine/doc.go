// Package engine runs compiled pattern packages over a token stream.
//
// Compile turns a linked expr.Package into a read-only Program. A Session
// feeds one text through a Program token by token: every pattern that can
// start at a token gets a root candidate, waiting candidates are advanced
// through the token index, and completed roots stay pending while
// exceptions, spans, conditions or references they depend on are
// undecided. Matches become available through Session.Next once they are
// final, in the order they became final.
//
// A Program may be shared by any number of sessions; a Session is not safe
// for concurrent use.
package engine
