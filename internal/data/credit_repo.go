package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"credit-service/internal/biz"
	"credit-service/internal/constants"
	"credit-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type creditRepo struct {
	data *Data
	conf *biz.CreditConfig
	log  *log.Helper
}

// NewCreditRepo 创建积分账本仓储
func NewCreditRepo(data *Data, conf *biz.CreditConfig, logger log.Logger) biz.CreditRepo {
	return &creditRepo{
		data: data,
		conf: conf,
		log:  log.NewHelper(logger),
	}
}

// cachedLedger 余额缓存结构（存原始值，读取侧自行规范化）
type cachedLedger struct {
	SubscriptionStars int64 `json:"sub"`
	PackageStars      int64 `json:"pkg"`
	Amount            int64 `json:"amount"`
}

// GetCredit 直连数据库读取账本行；行不存在返回 nil
func (r *creditRepo) GetCredit(ctx context.Context, userID string) (*biz.CreditLedger, error) {
	var m model.Credit
	if err := r.data.db.WithContext(ctx).Where("user_id = ?", userID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &biz.CreditLedger{
		UserID:            m.UserID,
		SubscriptionStars: m.SubscriptionStars,
		PackageStars:      m.PackageStars,
		LegacyAmount:      m.Amount,
		UpdatedAt:         m.UpdatedAt,
	}, nil
}

// GetCreditCached 优先读缓存；未命中回源数据库并异步回填缓存
// 只供参考性的余额查询使用，扣减路径必须走 GetCredit
func (r *creditRepo) GetCreditCached(ctx context.Context, userID string) (*biz.CreditLedger, error) {
	cacheKey := constants.RedisKeyBalance + userID
	cacheStr, err := r.data.rdb.Get(ctx, cacheKey).Result()
	if err == nil {
		var cached cachedLedger
		if err := json.Unmarshal([]byte(cacheStr), &cached); err == nil {
			return &biz.CreditLedger{
				UserID:            userID,
				SubscriptionStars: cached.SubscriptionStars,
				PackageStars:      cached.PackageStars,
				LegacyAmount:      cached.Amount,
			}, nil
		}
	} else if err != redis.Nil {
		r.log.Warnf("读取余额缓存失败: user_id=%s, err=%v", userID, err)
	}

	ledger, err := r.GetCredit(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ledger != nil {
		// 更新缓存（异步，不阻塞，设置超时避免长时间等待）
		go r.setBalanceCache(userID, ledger.SubscriptionStars, ledger.PackageStars, ledger.LegacyAmount)
	}
	return ledger, nil
}

// EnsureCredit 账本行不存在时插入零值行；已存在则不做任何修改
func (r *creditRepo) EnsureCredit(ctx context.Context, userID string) error {
	m := model.Credit{
		CreditID: uuid.New().String(),
		UserID:   userID,
	}
	return r.data.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&m).Error
}

// CompareAndSwapStars 条件更新两池余额
// WHERE 条件带上读取时的两池原值，命中说明期间无并发写入；
// 同一条语句内把合并列 amount 同步为新的两池之和
func (r *creditRepo) CompareAndSwapStars(ctx context.Context, userID string, oldSub, oldPkg, newSub, newPkg int64) (bool, error) {
	result := r.data.db.WithContext(ctx).Model(&model.Credit{}).
		Where("user_id = ? AND subscription_stars = ? AND package_stars = ?", userID, oldSub, oldPkg).
		Updates(map[string]interface{}{
			"subscription_stars": newSub,
			"package_stars":      newPkg,
			"amount":             newSub + newPkg,
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	// 事务外异步刷新缓存；失败只影响参考性读取，不影响账本正确性
	go r.setBalanceCache(userID, newSub, newPkg, newSub+newPkg)
	return true, nil
}

// UpsertStars 覆盖写两池余额（最后写入者胜）
// 行不存在时创建；存在时整行覆盖两池及合并列
func (r *creditRepo) UpsertStars(ctx context.Context, userID string, sub, pkg int64) error {
	m := model.Credit{
		CreditID:          uuid.New().String(),
		UserID:            userID,
		SubscriptionStars: sub,
		PackageStars:      pkg,
		Amount:            sub + pkg,
	}
	err := r.data.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"subscription_stars": sub,
				"package_stars":      pkg,
				"amount":             sub + pkg,
			}),
		}).
		Create(&m).Error
	if err != nil {
		return fmt.Errorf("upsert credit failed: %w", err)
	}

	go r.setBalanceCache(userID, sub, pkg, sub+pkg)
	return nil
}

// setBalanceCache 写余额缓存
// 在 goroutine 中调用，使用独立的超时 context，避免阻塞主流程
func (r *creditRepo) setBalanceCache(userID string, sub, pkg, amount int64) {
	cacheCtx, cacheCancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cacheCancel()

	data, err := json.Marshal(cachedLedger{
		SubscriptionStars: sub,
		PackageStars:      pkg,
		Amount:            amount,
	})
	if err != nil {
		return
	}
	cacheKey := constants.RedisKeyBalance + userID
	// 缓存更新失败不影响主流程（异步操作，不使用 r.log 之外的依赖）
	if err := r.data.rdb.Set(cacheCtx, cacheKey, data, r.conf.BalanceCacheTTL).Err(); err != nil {
		r.log.Warnf("failed to update balance cache: user_id=%s, err=%v", userID, err)
	}
}
