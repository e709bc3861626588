package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/pieshop-backend/pkg/db/models"
)

// PromotionJobName identifies the rotation in logs and metrics.
const PromotionJobName = "promotion-rotation"

type rotator interface {
	Rotate(ctx context.Context) (*models.Item, error)
}

type promotionJob struct {
	rotator rotator
}

// NewPromotionJob wraps the promotion rotator as a cron job.
func NewPromotionJob(r rotator) (Job, error) {
	if r == nil {
		return nil, fmt.Errorf("promotion rotator required")
	}
	return &promotionJob{rotator: r}, nil
}

func (j *promotionJob) Name() string { return PromotionJobName }

func (j *promotionJob) Run(ctx context.Context) error {
	_, err := j.rotator.Rotate(ctx)
	return err
}
