package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"github.com/printforge/teepress/config"
	"github.com/printforge/teepress/pkg/db"
	"github.com/printforge/teepress/pkg/fulfillment"
	"github.com/printforge/teepress/pkg/history"
	"github.com/printforge/teepress/pkg/intent"
	"github.com/printforge/teepress/pkg/render"
)

// Service wires the pipeline to its inbound adapters: an HTTP API the chat
// connector calls, and an optional queue consumer for platforms that deliver
// messages over AMQP. Shared clients are created once here and reused across
// requests.
type Service struct {
	cfg          *config.Config
	e            *echo.Echo
	orchestrator *Orchestrator
	keywords     []string
}

func NewService(cfg *config.Config) *Service {
	return &Service{
		e:   echo.New(),
		cfg: cfg}
}

func (s *Service) StartService() error {
	client, err := fulfillment.New(s.cfg.Fulfillment)
	if err != nil {
		return fmt.Errorf("failed to initialize fulfillment client: %v", err)
	}
	log.Infof("using %s fulfillment vendor", s.cfg.Fulfillment.Vendor)

	parser := intent.NewParser(s.cfg.LLM, s.cfg.TriggerKeywordsList())
	renderer, err := render.NewRenderer(s.cfg.Renderer)
	if err != nil {
		return fmt.Errorf("failed to initialize renderer: %v", err)
	}

	//optional local design index
	var index db.DesignIndex
	if s.cfg.Postgres.Enabled {
		dB, err := sqlx.Open("postgres", fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			s.cfg.Postgres.Host, s.cfg.Postgres.Port, s.cfg.Postgres.Username, s.cfg.Postgres.Password, s.cfg.Postgres.Database))
		if err != nil {
			return fmt.Errorf("failed to connect to Postgres: %v", err)
		}
		log.Info("connected to Postgres")
		index, err = db.NewDesignIndex(s.cfg.Postgres.AutoCreate, dB)
		if err != nil {
			return fmt.Errorf("failed to initialize design index: %v", err)
		}
	}

	hist := history.New(client, index)
	s.orchestrator = NewOrchestrator(s.cfg, client, hist, parser, renderer)
	s.orchestrator.index = index
	s.keywords = s.cfg.TriggerKeywordsList()

	//optional design archive
	if s.cfg.Minio.Enabled {
		minioClient, err := minio.New(s.cfg.Minio.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(s.cfg.Minio.AccessKey, s.cfg.Minio.SecretKey, ""),
			Secure: true,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize Minio client: %v", err)
		}
		log.Info("connected to Minio")
		s.orchestrator.archive = minioClient
	}

	//optional AMQP inbound adapter
	if s.cfg.RabbitMQ.Enabled {
		conn, err := amqp.Dial(fmt.Sprintf("amqp://%s:%s@%s:%d/",
			s.cfg.RabbitMQ.Username, s.cfg.RabbitMQ.Password, s.cfg.RabbitMQ.Host, s.cfg.RabbitMQ.Port))
		if err != nil {
			return fmt.Errorf("failed to connect to RabbitMQ: %v", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			return fmt.Errorf("failed to open a channel: %v", err)
		}
		log.Info("connected to RabbitMQ")
		if err := s.consumeTeeRequests(ch); err != nil {
			return err
		}
	}

	s.e.Use(middleware.Logger())
	s.e.Use(middleware.Recover())

	v1 := s.e.Group("/api/v1")
	v1.POST("/tee", s.CreateTee)
	v1.GET("/designs/:user_id", s.GetUserDesigns)
	v1.GET("/designs", s.GetAllDesigns)
	v1.GET("/stats", s.GetStats)

	if err := s.e.Start(s.cfg.Server.Port); err != nil {
		return fmt.Errorf("failed to start server: %v", err)
	}
	return nil
}

type teeRequest struct {
	Message  string `json:"message" form:"message"`
	UserID   string `json:"user_id" form:"user_id"`
	Username string `json:"username" form:"username"`
}

func (s *Service) CreateTee(c echo.Context) error {
	req := &teeRequest{}
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}
	if req.Message == "" || req.UserID == "" {
		return c.JSON(http.StatusBadRequest, "message and user_id are required")
	}

	outcome := s.orchestrator.HandleRequest(c.Request().Context(), req.Message, req.UserID, req.Username)
	return c.JSON(http.StatusOK, outcome)
}

func (s *Service) GetUserDesigns(c echo.Context) error {
	userID := c.Param("user_id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, "user_id is required")
	}
	return c.JSON(http.StatusOK, s.orchestrator.DesignsForUser(c.Request().Context(), userID))
}

func (s *Service) GetAllDesigns(c echo.Context) error {
	return c.JSON(http.StatusOK, s.orchestrator.AllDesigns(c.Request().Context()))
}

func (s *Service) GetStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.orchestrator.Statistics(c.Request().Context()))
}

// consumeTeeRequests drains the configured queue. Each message runs its own
// pipeline instance; outcomes are logged since queue senders get no reply.
func (s *Service) consumeTeeRequests(ch *amqp.Channel) error {
	msgs, err := ch.Consume(
		s.cfg.RabbitMQ.Queue, // queue
		"",                   // consumer
		true,                 // auto-ack
		false,                // exclusive
		false,                // no-local
		false,                // no-wait
		nil,                  // args
	)
	if err != nil {
		return fmt.Errorf("failed to register a consumer: %v", err)
	}
	go func() {
		for d := range msgs {
			var req teeRequest
			if err := json.Unmarshal(d.Body, &req); err != nil {
				log.WithField("error", err).Warn("discarding malformed queue message")
				continue
			}
			if req.Message == "" || req.UserID == "" {
				continue
			}
			// the keyword gate the chat connector would normally apply
			if !s.triggered(req.Message) {
				continue
			}
			outcome := s.orchestrator.HandleRequest(context.Background(), req.Message, req.UserID, req.Username)
			log.WithFields(log.Fields{
				"user_id":  req.UserID,
				"success":  outcome.Success,
				"order":    outcome.OrderURL,
				"err_kind": outcome.ErrorKind,
			}).Info("processed queued tee request")
		}
	}()
	return nil
}

func (s *Service) triggered(message string) bool {
	lower := strings.ToLower(message)
	for _, k := range s.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
