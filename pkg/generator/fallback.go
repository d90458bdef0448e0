package generator

import (
	"hash/fnv"
	"sync/atomic"

	"github.com/kadirpekel/quoter/pkg/intent"
)

// offlineQuotes is the built-in quote set served when the live backend is
// unavailable.
var offlineQuotes = []string{
	`"The obstacle in the path becomes the path." - Anonymous`,
	`"Courage is not the absence of fear, but the decision that something matters more." - Anonymous`,
	`"Small steps taken daily outwalk grand plans left on the shelf." - Anonymous`,
	`"Growth begins exactly where certainty ends." - Anonymous`,
	`"A calm mind turns setbacks into instructions." - Anonymous`,
	`"What you practice in private becomes your reputation in public." - Anonymous`,
	`"The future rewards those who keep showing up for it." - Anonymous`,
	`"Wisdom is knowing which bridges to cross and which to burn." - Anonymous`,
}

// fallbackSet selects quotes deterministically: topic requests hash to a
// stable quote, random requests round-robin through the set.
type fallbackSet struct {
	quotes  []string
	counter atomic.Uint64
}

func newFallbackSet() *fallbackSet {
	return &fallbackSet{quotes: offlineQuotes}
}

func (f *fallbackSet) pick(it intent.Intent) (string, bool) {
	if len(f.quotes) == 0 {
		return "", false
	}

	if it.Kind == intent.KindRandomQuote {
		n := f.counter.Add(1) - 1
		return f.quotes[n%uint64(len(f.quotes))], true
	}

	h := fnv.New32a()
	h.Write([]byte(SanitizeTopic(it.Topic)))
	return f.quotes[h.Sum32()%uint32(len(f.quotes))], true
}
