package main

import (
	"context"
	"log"
	"ticketing-core/config"
	"ticketing-core/internal/cache"
	"ticketing-core/internal/database"
	"ticketing-core/internal/handler"
	"ticketing-core/internal/queue"
	"ticketing-core/internal/repository"
	"ticketing-core/internal/service"
	"ticketing-core/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.LoadConfig()

	pool, err := database.InitDatabase(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer pool.Close()

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to initialize redis: %v", err)
	}
	defer rdb.Close()

	ticketRepo := repository.NewTicketRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	couponRepo := repository.NewCouponRepository(pool)

	projection := cache.NewSessionAttendanceProjection(rdb)

	checkinQueue, err := queue.NewRedisStreamCheckinQueue(rdb, "", nil)
	if err != nil {
		log.Fatalf("Failed to initialize checkin queue: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	attendanceWorker := worker.NewAttendanceWorker(projection, checkinQueue)
	if err := attendanceWorker.Start(ctx); err != nil {
		log.Fatalf("Failed to start attendance worker: %v", err)
	}

	checkinService := service.NewCheckinService(ticketRepo, checkinQueue, cfg.Checkin)
	sessionService := service.NewSessionService(sessionRepo, ticketRepo, projection)
	couponService := service.NewCouponService(pool, couponRepo)

	router := gin.Default()
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler.NewCheckinHandler(checkinService).RegisterRoutes(router)
	handler.NewSessionHandler(sessionService).RegisterRoutes(router)
	handler.NewCouponHandler(couponService).RegisterRoutes(router)

	router.Run()
}
