package library

// Poster is one thumbnail candidate the server knows for an item. Key is the
// server-side reference used to select it; Selected marks the poster
// currently in use.
type Poster struct {
	Key      string
	Selected bool
}
