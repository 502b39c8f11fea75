package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProjectUser is a project membership entry. Role is one of the
// middleware role constants (admin, readonly).
type ProjectUser struct {
	Email string `bson:"email" json:"email"`
	Role  string `bson:"role" json:"role"`
}

// Project is the top-level container owning task groups and tasks.
type Project struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UUID              string             `bson:"uuid" json:"uuid"`
	Name              string             `bson:"name" json:"name"`
	APIKey            string             `bson:"api_key" json:"api_key"`
	ExecutionEndpoint string             `bson:"execution_endpoint,omitempty" json:"execution_endpoint,omitempty"`
	AlertEmails       []string           `bson:"alert_emails,omitempty" json:"alert_emails,omitempty"`
	ProjectUsers      []ProjectUser      `bson:"project_users" json:"project_users"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// AdminEmails returns the emails holding the admin role.
func (p *Project) AdminEmails() []string {
	var emails []string
	for _, u := range p.ProjectUsers {
		if u.Role == "admin" {
			emails = append(emails, u.Email)
		}
	}
	return emails
}

// ReadonlyEmails returns the emails holding the readonly role.
func (p *Project) ReadonlyEmails() []string {
	var emails []string
	for _, u := range p.ProjectUsers {
		if u.Role == "readonly" {
			emails = append(emails, u.Email)
		}
	}
	return emails
}

// Constants for collection names
const (
	ProjectsCollection = "projects"
)
