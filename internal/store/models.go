package store

import "time"

type GameSession struct {
	ID               string
	OwnerIdentity    string
	Seed             int64
	Status           string
	CheckpointCount  int
	LastScore        int64
	LastCheckpointAt time.Time
	SuspicionCount   int
	FinalScore       int64
	Tier             string
	CreatedAt        time.Time
	CompletedAt      *time.Time
	ExpiresAt        time.Time
}

type Checkpoint struct {
	SessionID       string
	Seq             int
	Score           int64
	ClientTimestamp int64
	RecordedAt      time.Time
	Suspicious      bool
}

type CompletedGameProof struct {
	SessionID     string
	OwnerIdentity string
	Score         int64
	Tier          string
	IssuedAt      time.Time
	ValidUntil    time.Time
}

type Invoice struct {
	ID                   string
	RGBRecipient         string
	UnitCount            int64
	AmountExpectedSats   int64
	AmountToleranceSats  int64
	AmountPaidSats       int64
	Tier                 string
	IdempotencyKey       string
	Status               string
	ReservationID        string
	ExternalID           string
	PaymentRequest       string
	DistributionAttempts int
	Artifact             []byte
	CreatedAt            time.Time
	ExpiresAt            time.Time
	UpdatedAt            time.Time
}

type IdempotencyRecord struct {
	Key          string
	CachedResult []byte
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

type Reservation struct {
	ID        string
	Units     int64
	State     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type SupplyState struct {
	DistributedUnits   int64
	TotalCapacityUnits int64
}
