package domain

import "time"

// Project is the root grouping entity. A project owns zero or more dags.
type Project struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
	ImgSize      int64      `json:"img_size"`
	FileSize     int64      `json:"file_size"`
}

// ProjectRef is the short form of a project embedded in other records.
type ProjectRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}
