package ui

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/palemoky/party-games/internal/game/battleships"
)

// 棋盘格子的显示
const (
	cellWater = "·"
	cellShip  = "■"
	cellMine  = "✱"
	cellHit   = "✖"
	cellMiss  = "○"
	cellSunk  = "▓"
	cellBoom  = "✹"
)

var (
	errFleetComplete = errors.New("舰队和水雷已经布置完毕")
	errOverlap       = errors.New("与已有的船重叠")
	errMineOnShip    = errors.New("水雷不能放在自己的船上")
)

type mineSpot = struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// BattleModel 海战棋界面：本地布阵和开火光标
type BattleModel struct {
	view    battleships.PlayerView
	hasView bool

	cursorX, cursorY int
	vertical         bool

	// 布阵中的船和雷，提交后由服务器视图接管
	ships []battleships.Placement
	mines []int
}

// NewBattleModel 创建海战棋界面
func NewBattleModel() *BattleModel {
	return &BattleModel{}
}

// Apply 接收服务器推送的视图
func (b *BattleModel) Apply(v battleships.PlayerView) {
	b.view = v
	b.hasView = true
	if v.Placed[v.Me] {
		// 服务器已接受布阵，本地草稿作废
		b.ships = nil
		b.mines = nil
	}
}

// Reset 新的一局
func (b *BattleModel) Reset() {
	*b = BattleModel{}
}

// Placing 自己是否还在布阵
func (b *BattleModel) Placing() bool {
	return b.hasView && !b.view.Placed[b.view.Me] && b.view.Result == ""
}

// MyTurn 是否轮到自己开火
func (b *BattleModel) MyTurn() bool {
	return b.hasView && !b.Placing() && b.view.Result == "" &&
		b.view.Placed[b.view.Opponent] && b.view.CurrentTurn == b.view.Me
}

// Move 移动光标，不越出棋盘
func (b *BattleModel) Move(dx, dy int) {
	b.cursorX = min(max(b.cursorX+dx, 0), battleships.BoardSize-1)
	b.cursorY = min(max(b.cursorY+dy, 0), battleships.BoardSize-1)
}

// Rotate 切换下一艘船的方向
func (b *BattleModel) Rotate() { b.vertical = !b.vertical }

// NextShip 下一艘待布置的船长，全部布完返回 0
func (b *BattleModel) NextShip() int {
	if len(b.ships) < len(battleships.FleetLengths) {
		return battleships.FleetLengths[len(b.ships)]
	}
	return 0
}

// draftCells 草稿中船占据的格子
func (b *BattleModel) draftCells() map[int]bool {
	cells := map[int]bool{}
	for _, p := range b.ships {
		cs, _ := p.Cells()
		for _, c := range cs {
			cells[c] = true
		}
	}
	return cells
}

// PlaceAtCursor 在光标处放下一艘船，船放完后放水雷
func (b *BattleModel) PlaceAtCursor() error {
	occupied := b.draftCells()

	if length := b.NextShip(); length > 0 {
		p := battleships.Placement{X: b.cursorX, Y: b.cursorY, Length: length, Vertical: b.vertical}
		cells, err := p.Cells()
		if err != nil {
			return err
		}
		for _, c := range cells {
			if occupied[c] {
				return errOverlap
			}
		}
		b.ships = append(b.ships, p)
		return nil
	}

	if len(b.mines) >= battleships.MinesPerPlayer {
		return errFleetComplete
	}
	cell := battleships.CellOf(b.cursorX, b.cursorY)
	if occupied[cell] {
		return errMineOnShip
	}
	if slices.Contains(b.mines, cell) {
		return nil
	}
	b.mines = append(b.mines, cell)
	return nil
}

// Undo 撤销最后一步布阵
func (b *BattleModel) Undo() {
	switch {
	case len(b.mines) > 0:
		b.mines = b.mines[:len(b.mines)-1]
	case len(b.ships) > 0:
		b.ships = b.ships[:len(b.ships)-1]
	}
}

// DraftReady 船和雷都已布置
func (b *BattleModel) DraftReady() bool {
	return b.NextShip() == 0 && len(b.mines) == battleships.MinesPerPlayer
}

// FleetData 布阵动作参数
func (b *BattleModel) FleetData() battleships.PlaceFleetData {
	d := battleships.PlaceFleetData{Ships: slices.Clone(b.ships)}
	for _, c := range b.mines {
		x, y := battleships.XY(c)
		d.Mines = append(d.Mines, mineSpot{X: x, Y: y})
	}
	return d
}

// Target 光标指向的开火坐标
func (b *BattleModel) Target() battleships.FireData {
	return battleships.FireData{X: b.cursorX, Y: b.cursorY}
}

// AlreadyFired 光标处是否已经开过火
func (b *BattleModel) AlreadyFired() bool {
	for _, m := range b.view.Moves {
		if m.PlayerID == b.view.Me && m.X == b.cursorX && m.Y == b.cursorY {
			return true
		}
	}
	return false
}

// ownBoard 自己的海域：船、雷和对方的炮火
func (b *BattleModel) ownBoard() [][]string {
	grid := newGrid()
	ships, mines := b.view.MyShips, b.view.MyMines
	if b.Placing() {
		ships = nil
		for _, p := range b.ships {
			cs, _ := p.Cells()
			ships = append(ships, cs)
		}
		mines = b.mines
	}
	for _, ship := range ships {
		for _, c := range ship {
			x, y := battleships.XY(c)
			grid[y][x] = cellShip
		}
	}
	for _, c := range mines {
		x, y := battleships.XY(c)
		grid[y][x] = cellMine
	}
	for _, c := range b.view.TriggeredMine {
		x, y := battleships.XY(c)
		grid[y][x] = cellBoom
	}
	for _, m := range b.view.Moves {
		if m.PlayerID != b.view.Me {
			grid[m.Y][m.X] = shotMark(m.Hit)
		}
	}
	return grid
}

// enemyBoard 对方海域：自己的炮火和已击沉的船
func (b *BattleModel) enemyBoard() [][]string {
	grid := newGrid()
	for _, ship := range b.view.SunkEnemy {
		for _, c := range ship {
			x, y := battleships.XY(c)
			grid[y][x] = cellSunk
		}
	}
	for _, m := range b.view.Moves {
		if m.PlayerID == b.view.Me && grid[m.Y][m.X] != cellSunk {
			grid[m.Y][m.X] = shotMark(m.Hit)
		}
	}
	return grid
}

func shotMark(hit bool) string {
	if hit {
		return cellHit
	}
	return cellMiss
}

func newGrid() [][]string {
	grid := make([][]string, battleships.BoardSize)
	for y := range grid {
		grid[y] = slices.Repeat([]string{cellWater}, battleships.BoardSize)
	}
	return grid
}

// renderGrid 渲染棋盘，withCursor 时高亮光标格
func (b *BattleModel) renderGrid(title string, grid [][]string, withCursor bool) string {
	var sb strings.Builder
	sb.WriteString("   ")
	for x := range battleships.BoardSize {
		sb.WriteString(fmt.Sprintf("%c ", 'A'+x))
	}
	sb.WriteString("\n")
	for y, row := range grid {
		sb.WriteString(fmt.Sprintf("%2d ", y+1))
		for x, cell := range row {
			s := cellStyle(cell).Render(cell)
			if withCursor && x == b.cursorX && y == b.cursorY {
				s = cursorStyle.Render(cell)
			}
			sb.WriteString(s + " ")
		}
		sb.WriteString("\n")
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, titleStyle(title), sb.String()))
}

// View 渲染双方棋盘
func (b *BattleModel) View(names map[string]string) string {
	own := b.renderGrid("我的海域", b.ownBoard(), b.Placing())
	enemy := b.renderGrid(fmt.Sprintf("%s 的海域", nameOr(names, b.view.Opponent, "对手")), b.enemyBoard(), !b.Placing())
	boards := lipgloss.JoinHorizontal(lipgloss.Top, own, "  ", enemy)

	return lipgloss.JoinVertical(lipgloss.Left, boards, "", b.status(names))
}

func (b *BattleModel) status(names map[string]string) string {
	energy := fmt.Sprintf("⚡ 能量 %d", b.view.Energy[b.view.Me])
	switch {
	case !b.hasView:
		return "等待对局数据..."
	case b.view.Result != "":
		if b.view.Result == b.view.Me {
			return winStyle.Render("🏆 你赢了！")
		}
		return loseStyle.Render(fmt.Sprintf("💥 %s 获胜", nameOr(names, b.view.Result, "对手")))
	case b.Placing():
		if length := b.NextShip(); length > 0 {
			dir := "横向"
			if b.vertical {
				dir = "纵向"
			}
			return fmt.Sprintf("🚢 放置长度 %d 的船（%s）  方向键移动 R 旋转 空格放置 U 撤销", length, dir)
		}
		if !b.DraftReady() {
			return fmt.Sprintf("✱ 放置水雷 %d/%d  空格放置 U 撤销", len(b.mines), battleships.MinesPerPlayer)
		}
		return "✅ 布阵完成，回车提交"
	case !b.view.Placed[b.view.Opponent]:
		return "⏳ 等待对手布阵..."
	case b.MyTurn():
		return "🎯 轮到你开火！方向键瞄准 空格开火  " + energy
	default:
		return "⏳ 对手回合  " + energy
	}
}

func nameOr(names map[string]string, uid, fallback string) string {
	if n := names[uid]; n != "" {
		return n
	}
	return fallback
}
