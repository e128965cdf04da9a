package event

// Block is one confirmed chain block, reduced to the operations the
// exchange cares about. Blocks arrive strictly in chain order; Parent must
// equal the hash of the block currently at the tip.
//
// Time is the block's own timestamp. It is the only clock the engine ever
// sees, which keeps replays byte-identical.
type Block struct {
	Height   uint64
	Hash     string
	Parent   string
	Time     int64
	Commands []Command
}
