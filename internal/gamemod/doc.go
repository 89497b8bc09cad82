// Package gamemod builds the demo game module as a WebAssembly guest. It
// registers Vec3, Transform, Health and Player, keeps a block of players in
// its memory, exports that block as state across reloads, and advances it
// from game_update.
package gamemod
