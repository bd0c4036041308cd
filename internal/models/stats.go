package models

type TaskStats struct {
	Total             int
	Status            map[TaskStatus]int
	Priority          map[TaskPriority]int
	Overdue           int
	CompletedThisWeek int
}

type CategoryCount struct {
	Category string
	Count    int
}

type ArticleStats struct {
	Total              int
	Status             map[ArticleStatus]int
	Categories         []CategoryCount
	TotalViews         int64
	PublishedThisMonth int
}
