/*
Package errors implements the error handling used across covault.

Each returned error is built on top of one of the root errors declared
in this package. A root error carries a unique numeric code and a short
description. Runtime errors are created by wrapping a root error with
any number of context layers. Use the Is method of a root error to test
what category a received error belongs to, regardless of how many times
it was wrapped.
*/
package errors
