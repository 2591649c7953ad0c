/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package vpsctl

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mirkobrombin/vpsctl/pkg/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type containerModel struct {
	ID              string `gorm:"primaryKey"`
	OwnerID         string `gorm:"index;not null"`
	Seq             int    `gorm:"not null"`
	RamGB           int
	CpuCores        int
	DiskGB          int
	Status          string `gorm:"not null"`
	SuspendedReason string
	SuspendedBy     string
	SuspendedAt     *time.Time
	CreatedAt       time.Time `gorm:"autoCreateTime:false"`

	Shares  []shareModel      `gorm:"foreignKey:ContainerID"`
	History []suspensionModel `gorm:"foreignKey:ContainerID"`
}

func (containerModel) TableName() string { return "containers" }

type shareModel struct {
	ContainerID string `gorm:"primaryKey"`
	GranteeID   string `gorm:"primaryKey"`
	Position    int
}

func (shareModel) TableName() string { return "shares" }

type suspensionModel struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	ContainerID string `gorm:"index;not null"`
	Position    int
	At          time.Time
	Reason      string
	Actor       string
}

func (suspensionModel) TableName() string { return "suspensions" }

type adminModel struct {
	ActorID string `gorm:"primaryKey"`
}

func (adminModel) TableName() string { return "admins" }

type ownerModel struct {
	OwnerID string `gorm:"primaryKey"`
	NextSeq int
}

func (ownerModel) TableName() string { return "owners" }

// Store is the durable record of containers, owners and admins. Every
// method runs in its own transaction, so a failed write leaves the previous
// state untouched.
type Store struct {
	db *gorm.DB
}

// NewStore opens (or creates) the database in the given directory.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	dbPath := filepath.Join(dir, "vpsctl.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open store %s: %w", dbPath, err)
	}

	err = db.AutoMigrate(&containerModel{}, &shareModel{}, &suspensionModel{}, &adminModel{}, &ownerModel{})
	if err != nil {
		return nil, fmt.Errorf("failed to migrate store: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toModel(c types.Container) containerModel {
	m := containerModel{
		ID:        c.Id,
		OwnerID:   c.OwnerId,
		Seq:       c.Seq,
		RamGB:     c.Resources.RamGB,
		CpuCores:  c.Resources.CpuCores,
		DiskGB:    c.Resources.DiskGB,
		Status:    string(c.Status),
		CreatedAt: c.CreatedAt.UTC(),
	}
	if c.Suspension != nil {
		at := c.Suspension.At.UTC()
		m.SuspendedReason = c.Suspension.Reason
		m.SuspendedBy = c.Suspension.Actor
		m.SuspendedAt = &at
	}
	return m
}

func fromModel(m containerModel) types.Container {
	c := types.Container{
		Id:      m.ID,
		OwnerId: m.OwnerID,
		Seq:     m.Seq,
		Resources: types.Resources{
			RamGB:    m.RamGB,
			CpuCores: m.CpuCores,
			DiskGB:   m.DiskGB,
		},
		Status:            types.Status(m.Status),
		CreatedAt:         m.CreatedAt.UTC(),
		SharedWith:        make([]string, 0, len(m.Shares)),
		SuspensionHistory: make([]types.SuspensionEntry, 0, len(m.History)),
	}
	if m.SuspendedAt != nil {
		c.Suspension = &types.Suspension{
			Reason: m.SuspendedReason,
			Actor:  m.SuspendedBy,
			At:     m.SuspendedAt.UTC(),
		}
	}
	for _, s := range m.Shares {
		c.SharedWith = append(c.SharedWith, s.GranteeID)
	}
	for _, h := range m.History {
		c.SuspensionHistory = append(c.SuspensionHistory, types.SuspensionEntry{
			Time:   h.At.UTC(),
			Reason: h.Reason,
			Actor:  h.Actor,
		})
	}
	return c
}

// SaveContainer writes the record, its shares and the history entries not
// stored yet.
func (s *Store) SaveContainer(c types.Container) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return saveContainer(tx, c)
	})
}

func saveContainer(tx *gorm.DB, c types.Container) error {
	m := toModel(c)
	err := tx.Omit(clause.Associations).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&m).Error
	if err != nil {
		return fmt.Errorf("failed to save container %s: %w", c.Id, err)
	}

	if err := tx.Where("container_id = ?", c.Id).Delete(&shareModel{}).Error; err != nil {
		return fmt.Errorf("failed to clear shares of %s: %w", c.Id, err)
	}
	if len(c.SharedWith) > 0 {
		shares := make([]shareModel, 0, len(c.SharedWith))
		for i, g := range c.SharedWith {
			shares = append(shares, shareModel{ContainerID: c.Id, GranteeID: g, Position: i})
		}
		if err := tx.Create(&shares).Error; err != nil {
			return fmt.Errorf("failed to save shares of %s: %w", c.Id, err)
		}
	}

	var stored int64
	if err := tx.Model(&suspensionModel{}).Where("container_id = ?", c.Id).Count(&stored).Error; err != nil {
		return fmt.Errorf("failed to count history of %s: %w", c.Id, err)
	}
	if int(stored) > len(c.SuspensionHistory) {
		// the record was recreated with a shorter history
		if err := tx.Where("container_id = ?", c.Id).Delete(&suspensionModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear history of %s: %w", c.Id, err)
		}
		stored = 0
	}
	if int(stored) < len(c.SuspensionHistory) {
		entries := make([]suspensionModel, 0, len(c.SuspensionHistory)-int(stored))
		for i := int(stored); i < len(c.SuspensionHistory); i++ {
			h := c.SuspensionHistory[i]
			entries = append(entries, suspensionModel{
				ContainerID: c.Id,
				Position:    i,
				At:          h.Time.UTC(),
				Reason:      h.Reason,
				Actor:       h.Actor,
			})
		}
		if err := tx.Create(&entries).Error; err != nil {
			return fmt.Errorf("failed to append history of %s: %w", c.Id, err)
		}
	}
	return nil
}

// SaveOwnerSeq records the next sequence number of an owner.
func (s *Store) SaveOwnerSeq(owner string, next int) error {
	m := ownerModel{OwnerID: owner, NextSeq: next}
	err := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("failed to save sequence of %s: %w", owner, err)
	}
	return nil
}

// DeleteContainer removes a record with its shares and history.
func (s *Store) DeleteContainer(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return deleteContainer(tx, id)
	})
}

func deleteContainer(tx *gorm.DB, id string) error {
	if err := tx.Where("container_id = ?", id).Delete(&shareModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete shares of %s: %w", id, err)
	}
	if err := tx.Where("container_id = ?", id).Delete(&suspensionModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete history of %s: %w", id, err)
	}
	if err := tx.Where("id = ?", id).Delete(&containerModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete container %s: %w", id, err)
	}
	return nil
}

// LoadAll returns every record, ordered by owner and sequence, together
// with the stored owner sequences.
func (s *Store) LoadAll() ([]types.Container, map[string]int, error) {
	var models []containerModel
	err := s.db.
		Preload("Shares", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Order("owner_id, seq").
		Find(&models).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load containers: %w", err)
	}

	containers := make([]types.Container, 0, len(models))
	for _, m := range models {
		containers = append(containers, fromModel(m))
	}

	var owners []ownerModel
	if err := s.db.Find(&owners).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load owners: %w", err)
	}
	seqs := make(map[string]int, len(owners))
	for _, o := range owners {
		seqs[o.OwnerID] = o.NextSeq
	}

	return containers, seqs, nil
}

// LoadAdmins returns the stored admin ids, sorted.
func (s *Store) LoadAdmins() ([]string, error) {
	var admins []adminModel
	if err := s.db.Order("actor_id").Find(&admins).Error; err != nil {
		return nil, fmt.Errorf("failed to load admins: %w", err)
	}
	ids := make([]string, 0, len(admins))
	for _, a := range admins {
		ids = append(ids, a.ActorID)
	}
	return ids, nil
}

// SaveAdmins rewrites the admin set.
func (s *Store) SaveAdmins(ids []string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return saveAdmins(tx, ids)
	})
}

func saveAdmins(tx *gorm.DB, ids []string) error {
	if err := tx.Where("1 = 1").Delete(&adminModel{}).Error; err != nil {
		return fmt.Errorf("failed to clear admins: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	admins := make([]adminModel, 0, len(ids))
	for _, id := range ids {
		admins = append(admins, adminModel{ActorID: id})
	}
	if err := tx.Create(&admins).Error; err != nil {
		return fmt.Errorf("failed to save admins: %w", err)
	}
	return nil
}

// ReplaceAll rewrites the whole store in a single transaction.
func (s *Store) ReplaceAll(containers []types.Container, seqs map[string]int, admins []string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var stored []string
		if err := tx.Model(&containerModel{}).Pluck("id", &stored).Error; err != nil {
			return fmt.Errorf("failed to list stored containers: %w", err)
		}
		keep := make(map[string]bool, len(containers))
		for _, c := range containers {
			keep[c.Id] = true
		}
		for _, id := range stored {
			if !keep[id] {
				if err := deleteContainer(tx, id); err != nil {
					return err
				}
			}
		}
		for _, c := range containers {
			if err := saveContainer(tx, c); err != nil {
				return err
			}
		}
		for owner, next := range seqs {
			m := ownerModel{OwnerID: owner, NextSeq: next}
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&m).Error; err != nil {
				return fmt.Errorf("failed to save sequence of %s: %w", owner, err)
			}
		}
		return saveAdmins(tx, admins)
	})
}
