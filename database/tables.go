package database

var (
	usersTable = Table{
		Name: "users",
		Columns: []string{
			"kind", "document_type", "document_number", "first_name", "last_name", "birth_date",
			"phone", "address", "email", "password_hash", "role_id", "group_id", "active",
			"created_at", "last_login", "profile",
		},
		Immutable: []string{
			"kind", "document_type", "document_number", "first_name", "last_name", "birth_date", "created_at",
		},
	}

	rolesTable = Table{
		Name:    "roles",
		Columns: []string{"name", "description"},
	}

	permissionsTable = Table{
		Name:      "permissions",
		Columns:   []string{"code", "description"},
		Immutable: []string{"code"},
	}

	gradesTable = Table{
		Name:    "grades",
		Columns: []string{"name", "level", "description"},
	}

	groupsTable = Table{
		Name: "school_groups",
		Columns: []string{
			"name", "min_capacity", "max_capacity", "active", "director_id", "created_by_id", "grade_id", "created_at",
		},
		Immutable: []string{"created_by_id", "created_at"},
	}

	categoriesTable = Table{
		Name:    "categories",
		Columns: []string{"name", "description"},
	}

	achievementsTable = Table{
		Name:      "achievements",
		Columns:   []string{"title", "description", "created_at", "created_by_id", "status", "category_id"},
		Immutable: []string{"created_at", "created_by_id"},
	}

	periodsTable = Table{
		Name:    "academic_periods",
		Columns: []string{"name", "start_date", "end_date", "is_current"},
	}

	evaluationsTable = Table{
		Name: "evaluations",
		Columns: []string{
			"achievement_id", "student_id", "teacher_id", "period_id", "score", "comments", "evaluated_at", "report_card_id",
		},
		Immutable: []string{"achievement_id", "student_id", "period_id"},
	}

	reportCardsTable = Table{
		Name:      "report_cards",
		Columns:   []string{"student_id", "period_id", "teacher_id", "generated_at", "observations"},
		Immutable: []string{"student_id", "period_id"},
	}

	interviewsTable = Table{
		Name:    "interviews",
		Columns: []string{"interviewer_id", "guardian_id", "applicant_id", "scheduled_at", "location", "status", "notes"},
	}

	citationsTable = Table{
		Name:      "citations",
		Columns:   []string{"sender_id", "subject", "message", "scheduled_at", "interview_id", "created_at"},
		Immutable: []string{"sender_id", "created_at"},
	}

	notificationsTable = Table{
		Name:      "notifications",
		Columns:   []string{"sender_id", "recipient_id", "title", "body", "is_read", "created_at"},
		Immutable: []string{"sender_id", "recipient_id", "created_at"},
	}
)
