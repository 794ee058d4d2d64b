/*
Package hostbridge lets an interpreter written in Go call Go functions and
methods with its own dynamic values.

The embedding interpreter adapts its values to [foreign.Object]. A [Bridge]
holds registered functions, grouped into overload sets by name, and picks
the best overload for each call the way a statically typed language would:
exact matches first, then enum and widening conversions, then registered
implicit conversions.

# Architecture (for developers)

Each step of a call is done by a distinct sub-package:
 1. [config]: Parse the user-supplied 'bridge.toml' or 'bridge.yaml'
 2. [paramspec] and [overload]: Declare parameters and build overload sets with a precedence order
 3. [binder]: Match foreign arguments against the candidates of a set and call the winner
 4. [converter]: Convert values between [foreign.Object] and Go values
 5. [enum] and [projection]: Project Go enum types and other types as classes
 6. [introspect] and cmd/bridgegen: Generate registration code for whole Go packages
*/
package hostbridge
