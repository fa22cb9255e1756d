package relay

import (
	"github.com/annel0/al-spectator/internal/gamedata"
	"github.com/annel0/al-spectator/internal/protocol"
)

// monsterData переводит монстра игрового сервера в событие браузера.
// aa, size и skin всегда берутся из игровых данных, hp, max_hp и speed -
// только когда сервер их не прислал.
func monsterData(gm gamedata.GMonster, m protocol.UpstreamMonster) protocol.EntityData {
	hp := gm.HP
	if m.HP != nil {
		hp = *m.HP
	}
	maxHP := gm.HP
	if m.MaxHP != nil {
		maxHP = *m.MaxHP
	}
	speed := gm.Speed
	if m.Speed != nil {
		speed = *m.Speed
	}
	size := gm.Size
	if size <= 0 {
		size = 1
	}
	skin := gm.Skin
	if skin == "" {
		skin = m.Type
	}

	return protocol.EntityData{
		ID:     m.ID,
		Skin:   skin,
		X:      protocol.Float(m.X),
		Y:      protocol.Float(m.Y),
		GoingX: protocol.Float(m.GoingX),
		GoingY: protocol.Float(m.GoingY),
		Speed:  protocol.Float(speed),
		Moving: protocol.Bool(m.Moving),
		HP:     protocol.Float(hp),
		MaxHP:  protocol.Float(maxHP),
		Target: protocol.String(m.Target),
		S:      statusOrEmpty(m.S),
		AA:     protocol.Bool(gm.AA != 0),
		Size:   protocol.Float(size),
	}
}

// characterData переводит персонажа игрового сервера в событие браузера
func characterData(p protocol.PlayerData) protocol.EntityData {
	return protocol.EntityData{
		ID:     p.ID,
		Skin:   p.Skin,
		X:      protocol.Float(p.X),
		Y:      protocol.Float(p.Y),
		GoingX: protocol.Float(p.GoingX),
		GoingY: protocol.Float(p.GoingY),
		Speed:  protocol.Float(p.Speed),
		Moving: protocol.Bool(p.Moving),
		HP:     protocol.Float(p.HP),
		MaxHP:  protocol.Float(p.MaxHP),
		Target: protocol.String(p.Target),
		S:      statusOrEmpty(p.S),
		CX:     p.CX,
	}
}

// statusOrEmpty гарантирует явный пустой набор статусов, чтобы браузер
// снимал эффекты, которых больше нет
func statusOrEmpty(s protocol.StatusInfo) protocol.StatusInfo {
	if s == nil {
		return protocol.StatusInfo{}
	}
	return s
}
