package biz

import "github.com/google/wire"

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewCreditConfig,
	NewBalanceUseCase,
	NewDeductUseCase,
	NewAllocatorUseCase,
	NewRefundUseCase,
	NewCreditTransactionUseCase,
	NewPurchaseOrderUseCase,
	NewSubscriptionUseCase,
	NewAccountUseCase,
)
