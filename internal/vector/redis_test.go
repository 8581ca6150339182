package vector

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"
)

func testRedisConfig() RedisConfig {
	return RedisConfig{Addrs: []string{"localhost:6379"}, IndexName: "idx", KeyPrefix: "skills:"}
}

func isCountCmd(cmd []string) bool {
	return cmd[0] == "FT.SEARCH" && len(cmd) > 2 && cmd[2] == "*"
}

func isKNNCmd(cmd []string) bool {
	return cmd[0] == "FT.SEARCH" && len(cmd) > 2 && strings.Contains(cmd[2], "KNN")
}

func TestRedisIndex_EnsureIndexExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.INFO", "idx")).
		Return(mock.Result(mock.RedisArray(mock.RedisString("index_name"), mock.RedisString("idx"))))

	r := newRedisIndex(c, testRedisConfig(), 2)
	if err := r.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRedisIndex_EnsureIndexCreates(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	gomock.InOrder(
		c.EXPECT().
			Do(gomock.Any(), mock.Match("FT.INFO", "idx")).
			Return(mock.Result(mock.RedisError("Unknown Index name"))),
		c.EXPECT().
			Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
				joined := strings.Join(cmd, " ")
				return cmd[0] == "FT.CREATE" &&
					strings.Contains(joined, "PREFIX 1 skills:") &&
					strings.Contains(joined, "DIM 2") &&
					strings.Contains(joined, "DISTANCE_METRIC COSINE")
			})).
			Return(mock.Result(mock.RedisString("OK"))),
	)

	r := newRedisIndex(c, testRedisConfig(), 2)
	if err := r.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRedisIndex_EnsureIndexError(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.INFO", "idx")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	r := newRedisIndex(c, testRedisConfig(), 2)
	err := r.EnsureIndex(context.Background())
	var verr *Error
	if !errors.As(err, &verr) || verr.Op != "FT.INFO" {
		t.Fatalf("expected FT.INFO error, got %v", err)
	}
}

func TestRedisIndex_Upsert(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			joined := strings.Join(cmd, " ")
			return cmd[0] == "HSET" && cmd[1] == "skills:skill_3_user_7" &&
				strings.Contains(joined, "skill_id 3") && strings.Contains(joined, "user_id 7")
		})).
		Return(mock.Result(mock.RedisInt64(3)))

	r := newRedisIndex(c, testRedisConfig(), 2)
	err := r.Upsert(context.Background(), "skill_3_user_7", []float32{0.1, 0.2},
		map[string]string{MetaSkillID: "3", MetaUserID: "7"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRedisIndex_UpsertDimensionMismatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	r := newRedisIndex(c, testRedisConfig(), 2)
	if err := r.Upsert(context.Background(), "a", []float32{1}, nil); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestRedisIndex_QueryClampsAndParses(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	gomock.InOrder(
		c.EXPECT().
			Do(gomock.Any(), mock.MatchFn(isCountCmd)).
			Return(mock.Result(mock.RedisArray(mock.RedisInt64(2)))),
		c.EXPECT().
			Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
				return isKNNCmd(cmd) && strings.Contains(cmd[2], "KNN 2 ")
			})).
			Return(mock.Result(mock.RedisArray(
				mock.RedisInt64(2),
				mock.RedisString("skills:skill_3_user_7"),
				mock.RedisArray(
					mock.RedisString("__vector_score"), mock.RedisString("0.1"),
					mock.RedisString("skill_id"), mock.RedisString("3"),
					mock.RedisString("user_id"), mock.RedisString("7"),
				),
				mock.RedisString("skills:skill_3"),
				mock.RedisArray(
					mock.RedisString("__vector_score"), mock.RedisString("0.25"),
					mock.RedisString("skill_id"), mock.RedisString("3"),
				),
			))),
	)

	r := newRedisIndex(c, testRedisConfig(), 2)
	hits, err := r.Query(context.Background(), []float32{0.1, 0.2}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ID != "skill_3_user_7" || hits[1].ID != "skill_3" {
		t.Errorf("prefix not stripped or order changed: %s, %s", hits[0].ID, hits[1].ID)
	}
	if hits[0].Score < 0.89 || hits[0].Score > 0.91 {
		t.Errorf("expected score ~0.9, got %f", hits[0].Score)
	}
	if hits[0].Metadata[MetaUserID] != "7" {
		t.Errorf("metadata = %v", hits[0].Metadata)
	}
	if _, ok := hits[0].Metadata["__vector_score"]; ok {
		t.Error("__vector_score should not leak into metadata")
	}
}

func TestRedisIndex_QueryEmptyIndex(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(isCountCmd)).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

	r := newRedisIndex(c, testRedisConfig(), 2)
	hits, err := r.Query(context.Background(), []float32{0.1, 0.2}, 5)
	if err != nil {
		t.Fatalf("empty index must not fail: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %d", len(hits))
	}
}

func TestRedisIndex_QuerySearchError(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	gomock.InOrder(
		c.EXPECT().
			Do(gomock.Any(), mock.MatchFn(isCountCmd)).
			Return(mock.Result(mock.RedisArray(mock.RedisInt64(4)))),
		c.EXPECT().
			Do(gomock.Any(), mock.MatchFn(isKNNCmd)).
			Return(mock.ErrorResult(context.DeadlineExceeded)),
	)

	r := newRedisIndex(c, testRedisConfig(), 2)
	if _, err := r.Query(context.Background(), []float32{0.1, 0.2}, 5); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected wrapped deadline error, got %v", err)
	}
}

func TestRedisIndex_SampleIDs(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.SEARCH", "idx", "*", "NOCONTENT", "LIMIT", "0", "5")).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(9),
			mock.RedisString("skills:skill_1"),
			mock.RedisString("skills:skill_2"),
		)))

	r := newRedisIndex(c, testRedisConfig(), 2)
	ids, err := r.SampleIDs(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != "skill_1" || ids[1] != "skill_2" {
		t.Errorf("SampleIDs = %v", ids)
	}
}

func TestRedisIndex_Remove(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), mock.Match("DEL", "skills:a"), mock.Match("DEL", "skills:b")).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisInt64(1)),
			mock.Result(mock.RedisInt64(1)),
		})

	r := newRedisIndex(c, testRedisConfig(), 2)
	if err := r.Remove(context.Background(), []string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
}

func TestNewRedisIndexDefaults(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := newRedisIndex(mock.NewClient(ctrl), RedisConfig{}, 4)
	if r.cfg.IndexName != "chotto-skills" || r.cfg.KeyPrefix != "chotto:skill:" {
		t.Errorf("defaults not applied: %+v", r.cfg)
	}
	if r.Type() != "redis" {
		t.Errorf("Type() = %s", r.Type())
	}
}
