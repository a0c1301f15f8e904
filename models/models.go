package models

// All lists every table for AutoMigrate, parents before children.
func All() []interface{} {
	return []interface{}{
		&UserProfile{},
		&Transaction{},
		&Game{},
		&Tournament{},
		&Participant{},
		&TournamentResult{},
		&WithdrawalRequest{},
		&CarouselSlide{},
		&AppSettings{},
		&SupportTicket{},
		&SupportMessage{},
		&PendingReferral{},
	}
}
