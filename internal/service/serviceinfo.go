package service

import (
	"time"

	"github.com/rryowa/weq_api/internal/util"
)

type ServiceInfo struct {
	Name        string `json:"name"`
	Environment string `json:"environment"`
	Version     string `json:"version"`
}

type ServerTime struct {
	Time     time.Time `json:"time"`
	Unix     int64     `json:"unix"`
	Timezone string    `json:"timezone"`
}

type InfoService struct {
	info ServiceInfo
	now  func() time.Time
}

func NewInfoService(cfg *util.AppConfig) *InfoService {
	return &InfoService{
		info: ServiceInfo{Name: cfg.Name, Environment: cfg.Env, Version: cfg.Version},
		now:  time.Now,
	}
}

func (s *InfoService) Info() ServiceInfo { return s.info }

func (s *InfoService) Time() ServerTime {
	t := s.now().UTC()
	return ServerTime{Time: t, Unix: t.Unix(), Timezone: "UTC"}
}
