package scoring

import (
	"errors"
	"fmt"

	"github.com/Dosada05/forecast-league/models"
)

// ErrPickNotParticipant возвращается, если прогноз ссылается на игрока,
// не входящего в состав турнира. Такое должно отсекаться при приёме прогноза,
// движок лишь защищается от нарушенного предусловия.
var ErrPickNotParticipant = errors.New("forecast pick is not a tournament participant")

// Policy — константы системы начисления очков. Передаётся явно при каждом
// вызове, а не хранится в состоянии модуля: так подсчёт детерминирован и
// тестируется с разными политиками.
type Policy struct {
	// Очки за точное попадание (предсказанное место == занятое место).
	ExactHitPoints int
	// Штраф за каждую единицу отклонения от предсказанного места.
	PenaltyPerRank int
	// Бонус за полностью точный прогноз (все слоты — точные попадания).
	// Ноль отключает бонус.
	PerfectBonus int
}

// DefaultPolicy — политика по умолчанию: 100 очков за точное место,
// минус 15 за каждую позицию отклонения, без бонуса.
func DefaultPolicy() Policy {
	return Policy{ExactHitPoints: 100, PenaltyPerRank: 15}
}

// Outcome — результат подсчёта одного прогноза.
type Outcome struct {
	Points    int
	ExactHits int
	Picks     []models.PickScore
}

// Score считает очки прогноза по официальному итогу турнира.
//
// Слот i (0-based) предсказывает, что picks[i] займёт место i+1. Игрок,
// отсутствующий в итоге — полный промах: 0 очков, diff равен числу слотов
// (используется для средней ошибки). Иначе очки убывают линейно с
// расстоянием между предсказанным и занятым местом, с полом в ноль.
//
// Функция чистая и идемпотентная: одинаковые входы всегда дают одинаковый
// результат, ни picks, ни result не изменяются.
func Score(picks []int, participants map[int]struct{}, result models.Result, policy Policy) (Outcome, error) {
	out := Outcome{Picks: make([]models.PickScore, 0, len(picks))}

	for i, playerID := range picks {
		if _, ok := participants[playerID]; !ok {
			return Outcome{}, fmt.Errorf("%w: player %d", ErrPickNotParticipant, playerID)
		}

		predicted := i + 1
		pick := models.PickScore{PlayerID: playerID, PredictedRank: predicted}

		actual, ranked := result[playerID]
		if !ranked {
			pick.Diff = len(picks)
			pick.Points = 0
			out.Picks = append(out.Picks, pick)
			continue
		}

		rank := actual
		pick.ActualRank = &rank
		pick.Diff = absInt(predicted - actual)

		if pick.Diff == 0 {
			pick.Points = policy.ExactHitPoints
			out.ExactHits++
		} else {
			pick.Points = policy.ExactHitPoints - policy.PenaltyPerRank*pick.Diff
			if pick.Points < 0 {
				pick.Points = 0
			}
		}

		out.Points += pick.Points
		out.Picks = append(out.Picks, pick)
	}

	if len(picks) > 0 && out.ExactHits == len(picks) {
		out.Points += policy.PerfectBonus
	}

	return out, nil
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
