package model

// ItemType is the one-character type code that starts every Gopher
// listing line (RFC 1436 section 3.8).
type ItemType byte

// Item types handled by the crawler. Every other code is treated as
// informational and skipped.
const (
	// ItemTextFile is a plain text file ("0").
	ItemTextFile ItemType = '0'

	// ItemDirectory is a Gopher menu ("1").
	ItemDirectory ItemType = '1'

	// ItemError is a server-declared error entry ("3").
	ItemError ItemType = '3'

	// ItemBinary is a binary file ("9").
	ItemBinary ItemType = '9'

	// ItemImage is the common non-canonical image type ("I").
	// It is fetched and measured like ItemBinary.
	ItemImage ItemType = 'I'

	// ItemInfo is the informational message type ("i").
	ItemInfo ItemType = 'i'
)

// Kind classifies the item type into the dispatch class the crawler uses.
type Kind int

const (
	// KindOther covers informational and unsupported item types.
	KindOther Kind = iota

	// KindDirectory is a listing that may be traversed.
	KindDirectory

	// KindText is a text file whose content may be snapshotted.
	KindText

	// KindBinary is a file whose size is measured and content discarded.
	KindBinary

	// KindError is a server-declared error entry.
	KindError
)

// Kind returns the dispatch class for the item type.
func (t ItemType) Kind() Kind {
	switch t {
	case ItemDirectory:
		return KindDirectory
	case ItemTextFile:
		return KindText
	case ItemBinary, ItemImage:
		return KindBinary
	case ItemError:
		return KindError
	default:
		return KindOther
	}
}

// String returns the type code as a one-character string.
func (t ItemType) String() string {
	return string(rune(t))
}

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindText:
		return "text"
	case KindBinary:
		return "binary"
	case KindError:
		return "error"
	default:
		return "other"
	}
}
