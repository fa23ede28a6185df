// cmd/seed populates the events table with a set of sample campus
// events for local development. Existing events are cleared first.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/campus-event-management/internal/database"
	"github.com/Shivanand-hulikatti/campus-event-management/internal/model"
	"github.com/Shivanand-hulikatti/campus-event-management/internal/repository"
)

type seedEvent struct {
	name        string
	daysAhead   int
	time        string
	location    string
	description string
	typ         string
	capacity    int
	venue       model.Venue
}

var seedEvents = []seedEvent{
	{
		name: "Annual Football Tournament", daysAhead: 7, time: "2:00 PM",
		location:    "University Stadium",
		description: "Annual inter-department football tournament featuring teams from all faculties.",
		typ:         "sports", capacity: 200,
		venue: model.Venue{Building: "Sports Complex", Room: "Main Field", Address: "University Sports Ground"},
	},
	{
		name: "Tech Innovation Workshop", daysAhead: 12, time: "10:00 AM",
		location:    "Engineering Building",
		description: "Learn about the latest technologies and innovations in software development.",
		typ:         "technology", capacity: 50,
		venue: model.Venue{Building: "Engineering Block", Room: "Lab 101", Address: "Main Campus"},
	},
	{
		name: "Cultural Dance Festival", daysAhead: 18, time: "6:00 PM",
		location:    "Auditorium",
		description: "Annual cultural dance festival showcasing traditional and modern dance forms.",
		typ:         "cultural", capacity: 300,
		venue: model.Venue{Building: "Arts Center", Room: "Main Hall", Address: "Cultural Complex"},
	},
	{
		name: "Academic Research Symposium", daysAhead: 22, time: "9:00 AM",
		location:    "Conference Center",
		description: "Research presentation and networking event for academic scholars.",
		typ:         "academic", capacity: 150,
	},
	{
		name: "Spring Social Mixer", daysAhead: 27, time: "7:00 PM",
		location:    "Student Center",
		description: "Social networking event for students to meet and mingle.",
		typ:         "social", capacity: 100,
	},
	{
		name: "Hackathon", daysAhead: 32, time: "8:00 AM",
		location:    "Computer Science Building",
		description: "24-hour coding competition for innovative solutions.",
		typ:         "technology", capacity: 80,
	},
	{
		name: "Basketball Championship", daysAhead: 37, time: "3:00 PM",
		location:    "Indoor Sports Complex",
		description: "Inter-university basketball championship finals.",
		typ:         "sports", capacity: 250,
	},
	{
		name: "Art Exhibition", daysAhead: 42, time: "11:00 AM",
		location:    "Art Gallery",
		description: "Student art exhibition featuring various mediums and styles.",
		typ:         "cultural", capacity: 120,
	},
	{
		name: "Career Fair", daysAhead: 48, time: "10:00 AM",
		location:    "Main Hall",
		description: "Annual career fair with top employers.",
		typ:         "academic", capacity: 400,
	},
	{
		name: "Summer Beach Party", daysAhead: 52, time: "4:00 PM",
		location:    "University Beach",
		description: "End of semester beach party celebration.",
		typ:         "social", capacity: 300,
	},
	{
		name: "AI Workshop Series", daysAhead: 57, time: "1:00 PM",
		location:    "Tech Hub",
		description: "Workshop on artificial intelligence and machine learning.",
		typ:         "technology", capacity: 60,
	},
	{
		name: "Chess Tournament", daysAhead: 62, time: "9:00 AM",
		location:    "Student Lounge",
		description: "Annual chess tournament open to all skill levels.",
		typ:         "sports", capacity: 40,
	},
	{
		name: "Music Festival", daysAhead: 67, time: "5:00 PM",
		location:    "Outdoor Amphitheater",
		description: "Live music performances by student bands.",
		typ:         "cultural", capacity: 500,
	},
	{
		name: "Research Conference", daysAhead: 72, time: "8:00 AM",
		location:    "Science Building",
		description: "International research conference on emerging technologies.",
		typ:         "academic", capacity: 200,
	},
	{
		name: "Game Night", daysAhead: 78, time: "6:00 PM",
		location:    "Recreation Center",
		description: "Social gaming event featuring various board and video games.",
		typ:         "social", capacity: 80,
	},
	{
		name: "Cybersecurity Seminar", daysAhead: 82, time: "2:00 PM",
		location:    "Lecture Hall",
		description: "Expert-led seminar on cybersecurity best practices.",
		typ:         "technology", capacity: 100,
	},
	{
		name: "Swimming Competition", daysAhead: 87, time: "10:00 AM",
		location:    "University Pool",
		description: "Annual swimming competition with multiple categories.",
		typ:         "sports", capacity: 150,
	},
	{
		name: "Theater Production", daysAhead: 92, time: "7:00 PM",
		location:    "Theater Hall",
		description: "Student theater production of a classic play.",
		typ:         "cultural", capacity: 200,
	},
	{
		name: "Graduation Ceremony", daysAhead: 97, time: "11:00 AM",
		location:    "Main Auditorium",
		description: "Annual graduation ceremony for the graduating class.",
		typ:         "academic", capacity: 1000,
	},
	{
		name: "Alumni Networking Night", daysAhead: 102, time: "6:30 PM",
		location:    "Grand Hall",
		description: "Networking event connecting current students with alumni.",
		typ:         "social", capacity: 250,
	},
}

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log); err != nil {
		log.Fatal("seed failed", zap.Error(err))
	}
}

func run(log *zap.Logger) error {
	ctx := context.Background()

	cfg, err := database.ConfigFromEnv()
	if err != nil {
		return fmt.Errorf("database config: %w", err)
	}
	pool, err := database.NewPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	// Clear existing events; registrations cascade.
	if _, err := pool.Exec(ctx, `DELETE FROM events`); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}
	log.Info("cleared existing events")

	repo := repository.NewEventRepository(pool)
	today := time.Now()
	for _, s := range seedEvents {
		req := model.CreateEventRequest{
			Name:        s.name,
			Date:        today.AddDate(0, 0, s.daysAhead),
			Time:        s.time,
			Location:    s.location,
			Description: s.description,
			Type:        s.typ,
			Capacity:    s.capacity,
			Venue:       s.venue,
		}
		ev, err := repo.Create(ctx, req, "")
		if err != nil {
			return fmt.Errorf("seed %q: %w", s.name, err)
		}
		log.Info("created event", zap.String("id", ev.ID), zap.String("name", ev.Name))
	}
	log.Info("seed complete", zap.Int("events", len(seedEvents)))
	return nil
}
