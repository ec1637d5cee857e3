package activity

// ListActivityOptions provides filtering options for listing activity.
type ListActivityOptions struct {
	UserID       *string
	StudyID      *string
	Subject      *string
	ActivityType *ActivityType
	Limit        int
	Offset       int
}
