package service

import (
	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/models"
)

// Navigator computes transitions within a lesson's ordered view sequence.
// What end-of-lesson looks like is the client's concern; the directive only
// reports that the sequence ran out.
type Navigator struct{}

func NewNavigator() *Navigator {
	return &Navigator{}
}

func (n *Navigator) AdvanceSequential(current, viewCount int) models.NavigateDirective {
	target := current + 1
	return models.NavigateDirective{
		Target:      target,
		Sequential:  true,
		EndOfLesson: target >= viewCount,
	}
}

func (n *Navigator) NavigateTo(target, viewCount int) (models.NavigateDirective, error) {
	if target < 0 || target >= viewCount {
		return models.NavigateDirective{}, models.NewValidationError(models.KindOutOfRange,
			"view %d is out of range, lesson has %d views", target, viewCount)
	}

	return models.NavigateDirective{Target: target}, nil
}
