// Package dedupe provides a time-windowed set of keys used to suppress
// repeated actions, such as sending the same email to one address twice
// within a cooldown.
package dedupe
