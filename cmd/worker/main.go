package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"

	"classtrack/internal/campus"
	"classtrack/internal/config"
	"classtrack/internal/queue"
	"classtrack/internal/schedule"
	"classtrack/internal/store"
)

// Worker forwards queued reschedule requests to the campus backend and keeps
// the Redis schedule cache warm for active student groups.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "classtrack:reschedules")
	}

	campusClient := campus.New(cfg.CampusAPIURL, cfg.CampusTimeout)
	cache := schedule.NewCache(redisClient.Client, cfg.ScheduleCacheTTL)

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("scheduler init failed: %v", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(cfg.CacheRefresh),
		gocron.NewTask(func() {
			refreshScheduleCache(ctx, campusClient, cache, cfg)
		}),
	)
	if err != nil {
		log.Fatalf("cache refresh job failed: %v", err)
	}
	scheduler.Start()
	defer func() { _ = scheduler.Shutdown() }()

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != queue.TypeReschedule {
			continue
		}

		var session schedule.ClassSchedule
		if err := json.Unmarshal(msg.Body, &session); err != nil {
			log.Printf("bad reschedule payload: %v", err)
			continue
		}

		log.Printf("forwarding reschedule for session %s", session.ID)
		if err := campusClient.AskReschedule(ctx, session); err != nil {
			log.Printf("reschedule forward failed for %s: %v", session.ID, err)
			continue
		}
		log.Printf("reschedule for %s accepted", session.ID)
	}

	log.Println("worker stopped")
}

// refreshScheduleCache re-fetches the schedule of every active group so day
// views keep hitting the cache.
func refreshScheduleCache(ctx context.Context, campusClient *campus.Client, cache *schedule.Cache, cfg config.App) {
	semester := cfg.Semester
	if semester == "" {
		semester = schedule.CurrentSemester(time.Now())
	}

	groups, err := campusClient.ListStudentGroups(ctx)
	if err != nil {
		log.Printf("student group list failed: %v", err)
		return
	}

	refreshed := 0
	for _, group := range groups {
		resp, err := campusClient.GroupSchedule(ctx, group.ID, semester, true)
		if err != nil {
			log.Printf("schedule fetch failed for group %s: %v", group.ID, err)
			continue
		}
		if err := cache.Put(ctx, group.ID, semester, resp); err != nil {
			log.Printf("cache write failed for group %s: %v", group.ID, err)
			continue
		}
		refreshed++
	}
	log.Printf("schedule cache refreshed for %d/%d groups", refreshed, len(groups))
}
