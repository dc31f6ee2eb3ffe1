package cron

import (
	"context"
	"fmt"
	"log"
	"time"

	"tradely/config"
	"tradely/services/dispatch"

	"github.com/hibiken/asynq"
)

const (
	TypeDispatchSweep = "dispatch:sweep"
	TypeOfferSweep    = "dispatch:offer_sweep"
)

// sweepBatchSize bounds how many bookings one sweep run touches.
const sweepBatchSize = 200

// InitSweepWorker starts the background sweep machinery: an asynq worker
// handling the sweep tasks plus a scheduler that enqueues them periodically.
// The booking-level sweep bounds total customer wait time; the offer-level
// sweep keeps cascades moving for bookings nobody touches.
func InitSweepWorker(svc dispatch.DispatchService) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisSweepQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeDispatchSweep, handleDispatchSweep(svc))
	mux.HandleFunc(TypeOfferSweep, handleOfferSweep(svc))

	go func() {
		log.Println("[SweepWorker] starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[SweepWorker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[SweepWorker] max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()

	go runScheduler(redisOpts)
}

// runScheduler enqueues both sweep tasks at the configured interval.
func runScheduler(redisOpts asynq.RedisClientOpt) {
	interval := config.AppConfig.SweepIntervalSeconds
	if interval <= 0 {
		interval = 60
	}
	spec := fmt.Sprintf("@every %ds", interval)

	scheduler := asynq.NewScheduler(redisOpts, nil)
	if _, err := scheduler.Register(spec, asynq.NewTask(TypeDispatchSweep, nil)); err != nil {
		log.Fatalf("[SweepWorker] failed to register dispatch sweep: %v", err)
	}
	if _, err := scheduler.Register(spec, asynq.NewTask(TypeOfferSweep, nil)); err != nil {
		log.Fatalf("[SweepWorker] failed to register offer sweep: %v", err)
	}
	if err := scheduler.Run(); err != nil {
		log.Fatalf("[SweepWorker] scheduler stopped: %v", err)
	}
}

func handleDispatchSweep(svc dispatch.DispatchService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		count, err := svc.SweepExpiredDispatches(sweepBatchSize)
		if err != nil {
			log.Printf("[SweepWorker] dispatch sweep failed: %v", err)
			return err
		}
		if count > 0 {
			log.Printf("[SweepWorker] expired %d dispatches", count)
		}
		return nil
	}
}

func handleOfferSweep(svc dispatch.DispatchService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		count, err := svc.SweepStaleOffers(sweepBatchSize)
		if err != nil {
			log.Printf("[SweepWorker] offer sweep failed: %v", err)
			return err
		}
		if count > 0 {
			log.Printf("[SweepWorker] advanced %d stale offers", count)
		}
		return nil
	}
}
