// Package policy decides what state each field of an item should be in.
//
// Evaluation is a pure function of the item, the configured policy, and the
// exemption set. Watched and exempt items always come out fully shown so a
// previous run's edits are undone even when the corresponding hide option has
// since been disabled. Fields with no meaningful content, and generic
// placeholder titles like "Episode 12", are pinned: never hidden and never
// restored.
package policy
