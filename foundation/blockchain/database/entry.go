package database

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// EntryDelimiter separates the entries packed into a block's data.
const EntryDelimiter = " | "

// ErrInvalidName is returned when an account name can't be written into
// an entry and read back.
var ErrInvalidName = errors.New("invalid account name")

// Set of entry kinds.
const (
	KindTransfer = "transfer"
	KindReward   = "reward"
)

// Entry represents a single ledger entry carried inside a block's data. The
// data of a block is a delimiter joined list of the entries' text form.
type Entry struct {
	Kind   string
	From   string
	To     string
	Amount float64
}

// Transfer constructs an entry moving amount from one account to another.
func Transfer(from string, to string, amount float64) Entry {
	return Entry{
		Kind:   KindTransfer,
		From:   from,
		To:     to,
		Amount: amount,
	}
}

// Reward constructs an entry crediting the miner of a block.
func Reward(to string, amount float64) Entry {
	return Entry{
		Kind:   KindReward,
		To:     to,
		Amount: amount,
	}
}

// String implements the fmt.Stringer interface and produces the text form
// of the entry that is stored in block data.
func (e Entry) String() string {
	amount := FormatAmount(e.Amount)

	switch e.Kind {
	case KindReward:
		return "Mining Reward: " + amount + " coins to " + e.To
	default:
		return e.From + " sends " + amount + " coins to " + e.To
	}
}

// FormatAmount renders an amount the way it is written in entries.
func FormatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}

// =============================================================================

// CheckSender validates the name of an account sending coins. A sender is
// a single word and can't contain the delimiter or look like a node tag.
func CheckSender(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: sender is required", ErrInvalidName)

	case strings.ContainsAny(name, "|"):
		return fmt.Errorf("%w: sender %q contains '|'", ErrInvalidName, name)

	case len(strings.Fields(name)) != 1 || strings.Fields(name)[0] != name:
		return fmt.Errorf("%w: sender %q contains whitespace", ErrInvalidName, name)

	case strings.HasPrefix(name, "[") && strings.HasSuffix(name, "]"):
		return fmt.Errorf("%w: sender %q looks like a node tag", ErrInvalidName, name)
	}

	return nil
}

// CheckRecipient validates the name of an account receiving coins. A
// recipient may hold several words separated by single spaces and can't
// contain the delimiter.
func CheckRecipient(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: recipient is required", ErrInvalidName)

	case strings.ContainsAny(name, "|"):
		return fmt.Errorf("%w: recipient %q contains '|'", ErrInvalidName, name)

	case strings.Join(strings.Fields(name), " ") != name:
		return fmt.Errorf("%w: recipient %q has irregular whitespace", ErrInvalidName, name)
	}

	return nil
}

// =============================================================================

// ParseEntry classifies the text form of an entry. It recognizes the forms
// "<from> sends <amount> coins to <to>" and
// "Mining Reward: <amount> coins to <to>", optionally tagged with the node
// that mined it. Anything else is reported as not recognized.
func ParseEntry(s string) (Entry, bool) {
	words := strings.Fields(s)

	// Blocks mined by a network node carry a leading "[node]" tag.
	if len(words) > 0 && strings.HasPrefix(words[0], "[") && strings.HasSuffix(words[0], "]") {
		words = words[1:]
	}

	if len(words) < 6 || words[4] != "to" {
		return Entry{}, false
	}

	amount, err := strconv.ParseFloat(words[2], 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Entry{}, false
	}

	to := strings.Join(words[5:], " ")

	switch {
	case words[0] == "Mining" && words[1] == "Reward:":
		return Reward(to, amount), true

	case words[1] == "sends":
		return Transfer(words[0], to, amount), true
	}

	return Entry{}, false
}

// ParseEntries splits block data into entries and returns the ones that
// are recognized. Unrecognized entries are skipped.
func ParseEntries(data string) []Entry {
	var entries []Entry
	for _, s := range SplitEntries(data) {
		if entry, ok := ParseEntry(s); ok {
			entries = append(entries, entry)
		}
	}

	return entries
}

// SplitEntries splits block data into the text form of its entries.
func SplitEntries(data string) []string {
	return strings.Split(data, EntryDelimiter)
}

// JoinEntries packs the text form of entries into block data.
func JoinEntries(entries []string) string {
	return strings.Join(entries, EntryDelimiter)
}
