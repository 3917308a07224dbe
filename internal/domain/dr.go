package domain

// DropRecord is the infrastructure metadata resolved from a DR/drop number.
type DropRecord struct {
	DropNumber  string
	ProjectID   *string
	ProjectName *string
	PoleNumber  *string
	PONNumber   *string
	ZoneID      *string
	Address     *string
	Latitude    *float64
	Longitude   *float64
	Contractor  *string
	Status      *string
}

// SLAPolicy maps a (ticket type, priority) pair to its resolution budget.
type SLAPolicy struct {
	TicketType      TicketType
	Priority        TicketPriority
	ResolutionHours int
}
