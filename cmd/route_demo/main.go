package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"navsmart/internal/maps"
	"navsmart/internal/modules/extract"
	"navsmart/internal/service"
)

func main() {
	apiKey := os.Getenv("GOOGLE_MAPS_API_KEY")
	if apiKey == "" {
		log.Fatal("GOOGLE_MAPS_API_KEY environment variable not set")
	}

	userMessage := "plan a trip from Kolkata to Delhi"
	if len(os.Args) > 1 {
		userMessage = strings.Join(os.Args[1:], " ")
	}

	client, err := maps.NewClient(apiKey)
	if err != nil {
		log.Fatalf("Failed to initialize maps client: %v", err)
	}
	planner := service.NewRoutePlanner(service.RoutePlannerDeps{
		Extractor:  extract.KeywordExtractor{},
		Geocoder:   maps.NewGeocoder(client, maps.NewMemoryCache(time.Hour), nil),
		Directions: maps.NewRouteService(client, 15*time.Second, nil),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Printf("User: %s\n", userMessage)

	route := planner.PlanRoute(ctx, userMessage)
	fmt.Printf("Reply: %s\n", route.Reply)
	printCandidate("Start", route.Start)
	printCandidate("End", route.End)

	details := planner.DetailedRoute(ctx, userMessage)
	if details.Error != "" {
		log.Fatalf("Directions: %s", details.Error)
	}
	if details.Leg != nil {
		fmt.Printf("Leg: %s -> %s, %s, %s\n", details.Leg.StartAddress, details.Leg.EndAddress, details.Leg.Distance, details.Leg.Duration)
	}
	fmt.Printf("Stop points: %d\n", len(details.Points))
	if n := len(details.Points); n > 0 {
		fmt.Printf("First: %.5f,%.5f  Last: %.5f,%.5f\n",
			details.Points[0][0], details.Points[0][1], details.Points[n-1][0], details.Points[n-1][1])
	}
}

func printCandidate(label string, c maps.LocationCandidate) {
	if !c.Resolved() {
		fmt.Printf("%s: %q (%s)\n", label, c.Name, c.Error)
		return
	}
	fmt.Printf("%s: %q at %.4f,%.4f\n", label, c.Name, *c.Latitude, *c.Longitude)
}
