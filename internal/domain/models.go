package domain

// Models lists every table in dependency order, parents first
func Models() []any {
	return []any{
		&Account{},
		&RefreshToken{},
		&Category{},
		&Campaign{},
		&Donation{},
		&Revenue{},
		&Withdraw{},
		&Comment{},
		&Like{},
		&Reward{},
		&RedeemReward{},
		&Event{},
		&EventParticipant{},
	}
}
