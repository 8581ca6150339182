// Package e2e provides end-to-end tests over a generated employee directory.
package e2e

import (
	"fmt"
	"sort"

	"github.com/hyperjump/chotto/internal/models"
)

// QueryTestCase is a query whose nearest skill must be SkillID, fanned out to every holder.
type QueryTestCase struct {
	Query           string
	SkillID         int64
	ExpectedUserIDs []int64
	Description     string
}

// Corpus is a generated directory plus the queries that must find its people.
type Corpus struct {
	Snapshot     *models.DirectorySnapshot
	TestCases    []QueryTestCase
	TotalUsers   int
	TotalQueries int
}

var skillNames = []string{
	"Python programming", "Kubernetes operations", "React front-end development",
	"Go concurrency", "PostgreSQL administration", "Docker containers",
	"Machine learning", "Deep learning", "REST API design", "GraphQL",
	"TypeScript", "Redis caching", "Elasticsearch", "AWS Lambda",
	"Terraform", "Prometheus monitoring", "gRPC services", "OAuth 2.0",
	"CI/CD pipelines", "Git workflows", "SQL tuning", "Microservices architecture",
	"Apache Kafka", "Nginx configuration", "Data analysis and measurement",
	"Statistics", "Technical writing", "Project management", "UX research",
	"Security auditing", "Incident response", "Load testing", "Mobile development",
	"Accessibility", "Internationalization", "Chaos engineering",
	"Site reliability engineering", "Database migration", "Product strategy",
	"Public speaking",
}

var departmentNames = []string{
	"Engineering", "Data Science", "Platform", "Design", "Security", "Sales",
}

var userNames = []string{
	"Aiko", "Hana", "Ren", "Sora", "Yuki", "Kaito", "Mei", "Riku", "Yui", "Haruto",
}

// BuildCorpus returns a deterministic directory of numUsers users holding skills across
// departments. Every tenth user has no display name and every thirteenth has no
// department, so placeholder names and null departments are exercised.
func BuildCorpus(numUsers int) *Corpus {
	snap := &models.DirectorySnapshot{}
	for i, name := range departmentNames {
		snap.Departments = append(snap.Departments, &models.Department{ID: int64(i + 1), Name: name})
	}
	for i, name := range skillNames {
		snap.Skills = append(snap.Skills, &models.Skill{ID: int64(100 + i), Name: name})
	}

	holders := make(map[int64][]int64)
	assignmentID := int64(1000)
	for i := 0; i < numUsers; i++ {
		id := int64(i + 1)
		name := fmt.Sprintf("%s %03d", userNames[i%len(userNames)], id)
		if i%10 == 9 {
			name = ""
		}
		snap.Users = append(snap.Users, &models.User{
			ID:    id,
			Name:  name,
			Email: fmt.Sprintf("user%03d@example.com", id),
		})
		profile := &models.Profile{UserID: id, Career: fmt.Sprintf("Joined in %d", 2010+i%12)}
		if i%13 != 12 {
			dept := int64(i%len(departmentNames) + 1)
			profile.DepartmentID = &dept
		}
		snap.Profiles = append(snap.Profiles, profile)

		// Two or three skills per user; the stride keeps holder sets varied.
		picks := []int{i % len(skillNames), (i*7 + 3) % len(skillNames)}
		if i%3 == 0 {
			picks = append(picks, (i*11+5)%len(skillNames))
		}
		seen := map[int64]bool{}
		for _, p := range picks {
			skillID := int64(100 + p)
			if seen[skillID] {
				continue
			}
			seen[skillID] = true
			snap.Assignments = append(snap.Assignments, &models.SkillAssignment{
				ID: assignmentID, UserID: id, SkillID: skillID,
			})
			assignmentID++
			holders[skillID] = append(holders[skillID], id)
		}
	}

	var cases []QueryTestCase
	for _, s := range snap.Skills {
		users := holders[s.ID]
		if len(users) == 0 {
			continue
		}
		sort.Slice(users, func(a, b int) bool { return users[a] < users[b] })
		cases = append(cases, QueryTestCase{
			Query:           s.Name,
			SkillID:         s.ID,
			ExpectedUserIDs: users,
			Description:     fmt.Sprintf("exact skill name %q reaches its %d holders", s.Name, len(users)),
		})
	}
	return &Corpus{
		Snapshot:     snap,
		TestCases:    cases,
		TotalUsers:   len(snap.Users),
		TotalQueries: len(cases),
	}
}

// DepartmentMembers returns the ids of users whose profile points at departmentID, ascending.
func (c *Corpus) DepartmentMembers(departmentID int64) []int64 {
	var ids []int64
	for _, p := range c.Snapshot.Profiles {
		if p.DepartmentID != nil && *p.DepartmentID == departmentID {
			ids = append(ids, p.UserID)
		}
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}
