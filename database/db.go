package database

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"chainode/config"
	"chainode/database/models"
	"chainode/types"
)

// ChainDB is the durable block store behind the ledger. Blocks are keyed by
// their content hash, so re-inserting a delivered-again block is a no-op.
type ChainDB struct {
	db *gorm.DB

	logger *zap.SugaredLogger
}

func New(cfg *config.DBConfig) *ChainDB {
	dsn := fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=utf8mb4&parseTime=True&loc=Local", cfg.User, cfg.Password, cfg.Host, cfg.DB)
	db, dbErr := gorm.Open(mysql.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Discard,
	})
	if dbErr != nil {
		panic(dbErr)
	}

	dbErr = db.AutoMigrate(&models.Block{})
	if dbErr != nil {
		panic(dbErr)
	}

	dbErr = db.AutoMigrate(&models.Meta{})
	if dbErr != nil {
		panic(dbErr)
	}

	return &ChainDB{
		db: db,

		logger: zap.S().Named("[db]"),
	}
}

// AddBlock persists the block. A block whose hash already exists is left
// untouched, which keeps appends idempotent under redelivery.
func (db *ChainDB) AddBlock(block *types.Block) error {
	row := models.Block{
		Organization: block.Organization,
		Payload:      block.Payload,
		PrevHash:     block.PrevHash,
		Timestamp:    block.Timestamp,
		Hash:         block.Hash,
	}
	result := db.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "hash"}},
		DoNothing: true,
	}).Create(&row)
	if result.Error != nil {
		return fmt.Errorf("store block [%s]: %w", block.Hash, result.Error)
	}

	var headMeta models.Meta
	db.db.Where(models.Meta{Key: models.HeadHashKey}).Assign(models.Meta{Val: block.Hash}).FirstOrCreate(&headMeta)

	return nil
}

// LoadChain reads the persisted chain back in insertion order, so a restarted
// node resumes from its last accepted head.
func (db *ChainDB) LoadChain() ([]*types.Block, error) {
	var rows []models.Block
	if err := db.db.Order("id asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load chain: %w", err)
	}

	blocks := make([]*types.Block, 0, len(rows))
	for _, row := range rows {
		blocks = append(blocks, &types.Block{
			Organization: row.Organization,
			Payload:      row.Payload,
			PrevHash:     row.PrevHash,
			Timestamp:    row.Timestamp,
			Hash:         row.Hash,
		})
	}

	db.logger.Infof("Loaded [%s] blocks from db", humanize.Comma(int64(len(blocks))))
	return blocks, nil
}

func (db *ChainDB) Close() {
	sqlDB, err := db.db.DB()
	if err != nil {
		db.logger.Errorf("Get sql db error: [%s]", err.Error())
		return
	}
	if err := sqlDB.Close(); err != nil {
		db.logger.Errorf("Close db error: [%s]", err.Error())
	}
}
