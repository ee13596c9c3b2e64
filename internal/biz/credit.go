package biz

import (
	"context"
	"time"

	creditErrors "credit-service/internal/errors"
	"credit-service/internal/metrics"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
)

// CreditBalance 规范化后的积分余额（派生对象，不作为存储真值）
type CreditBalance struct {
	SubscriptionStars int64 // 订阅星：按月发放，计费周期结束过期
	PackageStars      int64 // 加油包星：一次性购买，永不过期
	TotalBalance      int64 // 两池之和
}

// CreditLedger 积分账本行领域对象（保留原始存储值）
// 规范化余额通过 Balance() 计算，CAS 条件更新必须使用这里的原始值
type CreditLedger struct {
	UserID            string
	SubscriptionStars int64
	PackageStars      int64
	LegacyAmount      int64 // 历史合并余额列，本服务每次写入都保持等于两池之和
	UpdatedAt         time.Time
}

// Balance 计算规范化余额
// 历史数据兜底：拆分列均为 0 且合并列 > 0 时，整体视为永不过期的加油包星
// （历史发放无法追溯过期时间，不能凭空给它设一个）
func (l *CreditLedger) Balance() CreditBalance {
	if l == nil {
		return CreditBalance{}
	}
	sub := l.SubscriptionStars
	pkg := l.PackageStars
	if sub == 0 && pkg == 0 && l.LegacyAmount > 0 {
		pkg = l.LegacyAmount
	}
	return CreditBalance{
		SubscriptionStars: sub,
		PackageStars:      pkg,
		TotalBalance:      sub + pkg,
	}
}

// CreditRepo 积分账本数据层接口（定义在 biz 层）
type CreditRepo interface {
	// GetCredit 读取账本行（直连数据库），行不存在时返回 nil 而不是错误
	GetCredit(ctx context.Context, userID string) (*CreditLedger, error)
	// GetCreditCached 优先读缓存的账本行，仅用于参考性的余额查询，不得用于扣减
	GetCreditCached(ctx context.Context, userID string) (*CreditLedger, error)
	// EnsureCredit 账本行不存在时插入零值行；已存在则不做任何修改
	EnsureCredit(ctx context.Context, userID string) error
	// CompareAndSwapStars 条件更新：仅当两池仍等于 oldSub/oldPkg 时写入新值，
	// 同一条语句内同步合并列镜像与 updated_at；返回是否命中
	CompareAndSwapStars(ctx context.Context, userID string, oldSub, oldPkg, newSub, newPkg int64) (bool, error)
	// UpsertStars 非条件写入（最后写入者胜），用于单写者场景的发放类操作；
	// 行不存在时创建，存在时整行覆盖两池及合并列镜像
	UpsertStars(ctx context.Context, userID string, sub, pkg int64) error
}

// BalanceUseCase 余额读取业务逻辑
type BalanceUseCase struct {
	repo    CreditRepo
	conf    *CreditConfig
	log     *log.Helper
	metrics *metrics.CreditMetrics
}

// NewBalanceUseCase 创建余额 UseCase
func NewBalanceUseCase(repo CreditRepo, conf *CreditConfig, logger log.Logger) *BalanceUseCase {
	return &BalanceUseCase{
		repo:    repo,
		conf:    conf,
		log:     log.NewHelper(logger),
		metrics: metrics.GetMetrics(),
	}
}

// GetBalance 获取规范化余额；账本行不存在返回零余额（读取不隐式建行）
func (uc *BalanceUseCase) GetBalance(ctx context.Context, userID string) (CreditBalance, error) {
	ledger, err := uc.repo.GetCredit(ctx, userID)
	if err != nil {
		uc.log.WithContext(ctx).Errorf("读取积分余额失败: user_id=%s, err=%v", userID, err)
		return CreditBalance{}, pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeCreditGetFailed)
	}

	balance := ledger.Balance()

	if uc.metrics != nil {
		uc.metrics.BalanceQueryTotal.Inc()
		if balance.TotalBalance < uc.conf.LowBalanceThreshold {
			uc.metrics.BalanceLowTotal.Inc()
		}
	}

	return balance, nil
}

// HasEnoughCredits 检查余额是否足够
// 仅供上游准入判断参考：这里不预留也不加锁，真正的授权发生在扣减时，
// 返回 true 之后并发请求仍可能把余额用完
func (uc *BalanceUseCase) HasEnoughCredits(ctx context.Context, userID string, amount int64) (bool, error) {
	ledger, err := uc.repo.GetCreditCached(ctx, userID)
	if err != nil {
		return false, pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeCreditGetFailed)
	}
	return ledger.Balance().TotalBalance >= amount, nil
}
