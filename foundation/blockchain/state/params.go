package state

// Params represents the consensus parameters of a chain.
type Params struct {
	MinDifficulty           uint32                `json:"min_difficulty" validate:"gt=0,ltefield=MaxDifficulty"`
	MaxDifficulty           uint32                `json:"max_difficulty" validate:"lte=254"`
	Lookback                uint64                `json:"lookback" validate:"gt=0"`
	DesiredBlockTime        uint64                `json:"desired_block_time" validate:"gt=0"`
	MaxTransactionsPerBlock int                   `json:"max_transactions_per_block" validate:"gt=1"`
	MaxFutureDrift          uint64                `json:"max_future_drift"`
	MedianWindow            int                   `json:"median_window" validate:"gt=0"`
	PufferfishStart         uint64                `json:"pufferfish_start"`
	DifficultyExceptions    []DifficultyException `json:"difficulty_exceptions" validate:"dive"`
}

// DifficultyException allows blocks in the id range to carry the specified
// difficulty even when it doesn't match the chain difficulty.
type DifficultyException struct {
	FromID     uint64 `json:"from_id" validate:"gt=0"`
	ToID       uint64 `json:"to_id" validate:"gtefield=FromID"`
	Difficulty uint32 `json:"difficulty" validate:"gt=0"`
}

// MainnetParams returns the parameters of the main network.
func MainnetParams() Params {
	return Params{
		MinDifficulty:           16,
		MaxDifficulty:           254,
		Lookback:                100,
		DesiredBlockTime:        90,
		MaxTransactionsPerBlock: 25000,
		MaxFutureDrift:          120 * 60,
		MedianWindow:            10,
		PufferfishStart:         124500,
		DifficultyExceptions: []DifficultyException{
			{FromID: 536100, ToID: 536200, Difficulty: 27},
		},
	}
}

// difficultyAllowed reports if the block id falls into an exception for
// the specified difficulty.
func (p Params) difficultyAllowed(id uint64, difficulty uint32) bool {
	for _, ex := range p.DifficultyExceptions {
		if id >= ex.FromID && id <= ex.ToID && difficulty == ex.Difficulty {
			return true
		}
	}

	return false
}
